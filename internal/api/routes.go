package api

import (
	"net/http"

	"colorwerkz/internal/health"
	"colorwerkz/internal/method"
	"colorwerkz/internal/observability"
	"colorwerkz/internal/transfer"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransferService *transfer.Service
	MethodRouter    *method.Router
	Metrics         *observability.Metrics
	HealthChecker   *health.Checker
	APIKey          string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.TransferService, cfg.MethodRouter, cfg.HealthChecker)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Transfer endpoints - auth required
	authMiddleware := AuthMiddleware(cfg.APIKey)
	mux.Handle("POST /v1/transfers", authMiddleware(http.HandlerFunc(handler.CreateTransfer)))
	mux.Handle("POST /v1/transfers/batch", authMiddleware(http.HandlerFunc(handler.CreateBatch)))
	mux.Handle("GET /v1/methods", authMiddleware(http.HandlerFunc(handler.ListMethods)))

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
