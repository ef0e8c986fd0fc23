// Package api provides the HTTP API handlers and routing for the transfer service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"colorwerkz/internal/apperrors"
	"colorwerkz/internal/health"
	"colorwerkz/internal/method"
	"colorwerkz/internal/transfer"
)

// maxRequestBodySize limits request body to 1MB to prevent memory exhaustion
const maxRequestBodySize = 1 << 20 // 1 MB

// Handler contains HTTP handlers for the transfer API
type Handler struct {
	svc    *transfer.Service
	router *method.Router
	health *health.Checker
}

// NewHandler creates a new API handler
func NewHandler(svc *transfer.Service, router *method.Router, healthChecker *health.Checker) *Handler {
	return &Handler{
		svc:    svc,
		router: router,
		health: healthChecker,
	}
}

// TransferRequest is the body of POST /v1/transfers.
type TransferRequest struct {
	Method string       `json:"method"`
	Job    transfer.Job `json:"job"`
}

// BatchRequest is the body of POST /v1/transfers/batch.
type BatchRequest struct {
	Method string         `json:"method"`
	Jobs   []transfer.Job `json:"jobs"`
}

// CreateTransfer handles POST /v1/transfers
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	prepareJob(&req.Job)

	result, err := h.svc.Transfer(r.Context(), req.Method, req.Job)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CreateBatch handles POST /v1/transfers/batch
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	for i := range req.Jobs {
		prepareJob(&req.Jobs[i])
	}

	result, err := h.svc.TransferBatch(r.Context(), req.Method, req.Jobs)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// MethodInfo describes one available transfer method.
type MethodInfo struct {
	Name           string        `json:"name"`
	Aliases        []string      `json:"aliases,omitempty"`
	Accuracy       string        `json:"accuracy"`
	DefaultTimeout time.Duration `json:"defaultTimeout"`
	ReadyThreshold float64       `json:"readyThreshold"`
}

// ListMethods handles GET /v1/methods
func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	profiles := h.router.Profiles()
	methods := make([]MethodInfo, 0, len(profiles))
	for _, p := range profiles {
		methods = append(methods, MethodInfo{
			Name:           p.Name,
			Aliases:        p.Aliases,
			Accuracy:       string(p.Accuracy),
			DefaultTimeout: p.DefaultTimeout,
			ReadyThreshold: p.ReadyThreshold,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"methods": methods})
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 200 if the service is ready to accept traffic.
// Returns 503 if the worker runtime is unavailable.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsHealthy() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// prepareJob fills request-level conveniences: a generated ID when the caller
// did not supply one, and the input size when the source image is a readable
// local file. Validation proper happens in the service.
func prepareJob(job *transfer.Job) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.InputBytes == 0 && job.SourceImage != "" {
		if info, err := os.Stat(job.SourceImage); err == nil && !info.IsDir() {
			job.InputBytes = info.Size()
		}
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleError handles errors from the service layer with appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		slog.Error("Internal error", "error", err, "path", r.URL.Path)
	} else {
		slog.Warn("Client error", "error", err, "path", r.URL.Path, "status", status)
	}
	h.writeError(w, status, err.Error())
}
