// Package config provides configuration loading from environment variables.
package config

import (
	"time"
)

// Runtime selects the worker execution backend.
const (
	RuntimeExec   = "exec"
	RuntimeDocker = "docker"
)

// ServiceConfig holds configuration for the transfer service.
type ServiceConfig struct {
	Port              string
	MetricsPort       string
	APIKey            string
	ShutdownDrainWait time.Duration // Time to wait for load balancer to drain (0 to skip)

	Runtime      string // "exec" or "docker"
	MethodsFile  string // YAML method profile file ("" to use built-in defaults)
	WorkspaceDir string // Directory holding inputs and outputs; bind-mounted in docker runtime

	// Batch packing. BudgetMB is the accelerator memory ceiling shared by
	// the jobs of one batch. CostMultiplier scales per-resolution-class
	// estimates to account for downstream processing overhead.
	BudgetMB       int
	CostMultiplier float64

	// Worker invocation limits.
	DefaultTimeout time.Duration // Fallback when a profile specifies none
	MaxOutputBytes int           // Cap on captured stdout/stderr per stream
	KillGrace      time.Duration // Bounded wait after forced termination
	WorkerMemoryMB int           // Per-container memory limit, docker runtime only (0 = unlimited)
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:              GetEnv("PORT", "8080"),
		MetricsPort:       GetEnv("METRICS_PORT", "9090"),
		APIKey:            GetSecretFile(GetEnv("API_KEY_FILE", "")),
		ShutdownDrainWait: GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
		Runtime:           GetEnv("WORKER_RUNTIME", RuntimeExec),
		MethodsFile:       GetEnv("METHODS_FILE", ""),
		WorkspaceDir:      GetEnv("WORKSPACE_DIR", "/workspace"),
		BudgetMB:          GetIntEnv("TRANSFER_BUDGET_MB", 8192),
		CostMultiplier:    GetFloatEnv("TRANSFER_COST_MULTIPLIER", 2.5),
		DefaultTimeout:    GetDurationEnv("TRANSFER_DEFAULT_TIMEOUT", 2*time.Minute),
		MaxOutputBytes:    GetIntEnv("WORKER_MAX_OUTPUT_BYTES", 1<<20),
		KillGrace:         GetDurationEnv("WORKER_KILL_GRACE", 5*time.Second),
		WorkerMemoryMB:    GetIntEnv("WORKER_MEMORY_MB", 0),
	}
}
