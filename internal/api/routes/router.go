package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/aces/bvlfeedback/internal/api/handlers"
	"github.com/aces/bvlfeedback/internal/api/middleware"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	feedbackHandler *handlers.FeedbackThreadHandler

	allowedOrigins []string
	health         HealthChecker
	metrics        *observability.Metrics
}

// NewRouter creates a new router. health may be nil.
func NewRouter(
	feedbackHandler *handlers.FeedbackThreadHandler,
	allowedOrigins []string,
	health HealthChecker,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		feedbackHandler: feedbackHandler,
		allowedOrigins:  allowedOrigins,
		health:          health,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthCheck)

	// Feedback endpoints. The legacy path is kept for existing front ends.
	r.mux.HandleFunc("POST /ajax/new_bvl_feedback.php", r.feedbackHandler.SubmitFeedback)
	r.mux.HandleFunc("POST /api/feedback/threads", r.feedbackHandler.SubmitFeedback)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.NoStore(handler)
	handler = middleware.Compression(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	if r.health != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := r.health.Ping(ctx); err != nil {
			observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		return
	}
}
