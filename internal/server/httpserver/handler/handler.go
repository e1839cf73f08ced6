package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yndnr/jetkv/internal/telemetry/logger"
)

// StatusProvider is the view of the running server the handlers report on.
type StatusProvider interface {
	// Ready reports whether the RESP listener is accepting connections.
	Ready() bool
	// Status returns the current summary.
	Status() Status
}

// Handler routes admin requests.
type Handler struct {
	status StatusProvider
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a new Handler. status may be nil, in which case /ready
// always fails.
func New(status StatusProvider, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		status: status,
		logger: log,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /status", h.handleStatus)
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.write(w, r, status, NewResponse(logger.RequestIDFromContext(r.Context()), data))
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.write(w, r, status, NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message))
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.L(r.Context()).Slog().Error("failed to encode response", "error", err)
	}
}
