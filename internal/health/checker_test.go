package health

import (
	"context"
	"errors"
	"testing"
)

type fakeRuntime struct {
	err error
}

func (f *fakeRuntime) Ready(ctx context.Context) error {
	return f.err
}

func TestChecker_Liveness(t *testing.T) {
	t.Parallel()
	checker := NewChecker(nil)

	response := checker.Liveness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
}

func TestChecker_Readiness_NoRuntime(t *testing.T) {
	t.Parallel()
	checker := NewChecker(nil)

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}

	check, ok := response.Checks["workers"]
	if !ok {
		t.Fatal("Expected workers check to be present")
	}
	if check.Status != StatusUnhealthy {
		t.Errorf("Expected workers check to be unhealthy, got %s", check.Status)
	}
}

func TestChecker_Readiness_RuntimeStates(t *testing.T) {
	t.Parallel()

	healthy := NewChecker(&fakeRuntime{})
	if response := healthy.Readiness(context.Background()); !response.IsHealthy() {
		t.Errorf("Expected healthy readiness, got %s", response.Status)
	}

	broken := NewChecker(&fakeRuntime{err: errors.New("worker missing")})
	response := broken.Readiness(context.Background())
	if response.IsHealthy() {
		t.Error("Expected unhealthy readiness for broken runtime")
	}
	if response.Checks["workers"].Message != "worker missing" {
		t.Errorf("Expected probe message to surface, got %q", response.Checks["workers"].Message)
	}
}

func TestChecker_SetShuttingDown(t *testing.T) {
	t.Parallel()
	checker := NewChecker(&fakeRuntime{})

	if response := checker.Readiness(context.Background()); !response.IsHealthy() {
		t.Fatalf("Expected healthy readiness before shutdown, got %s", response.Status)
	}

	checker.SetShuttingDown()

	response := checker.Readiness(context.Background())
	if response.IsHealthy() {
		t.Error("Expected unhealthy readiness while shutting down")
	}
	if _, ok := response.Checks["shutdown"]; !ok {
		t.Error("Expected shutdown check to be present")
	}
}

func TestResponse_IsHealthy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"healthy", StatusHealthy, true},
		{"unhealthy", StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			response := &Response{Status: tt.status}
			if response.IsHealthy() != tt.expected {
				t.Errorf("IsHealthy() = %v, want %v", response.IsHealthy(), tt.expected)
			}
		})
	}
}
