package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/jetkv/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Status reports readiness and the /status summary.
	Status handler.StatusProvider

	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the admin router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(cfg.Status, log)

	mux := http.NewServeMux()
	mux.Handle("GET /health", h)
	mux.Handle("GET /ready", h)
	mux.Handle("GET /status", h)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Order: Recover -> RequestID -> AccessLog -> routes
	return Chain(mux, Recover(log), RequestID(), AccessLog(log))
}
