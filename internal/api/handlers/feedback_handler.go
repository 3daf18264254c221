package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
	apperrors "github.com/aces/bvlfeedback/pkg/errors"
)

const maxFeedbackFormBytes = 1 << 20

// FeedbackThreadCreator is the collaborator that persists new threads.
type FeedbackThreadCreator interface {
	CreateThread(ctx context.Context, req entities.NewThread) (*entities.FeedbackEntry, error)
}

// FeedbackThreadHandler handles behavioural feedback submissions.
type FeedbackThreadHandler struct {
	threads FeedbackThreadCreator
	level   entities.FeedbackLevel
	limiter *RateLimiter
	metrics *observability.Metrics
}

// NewFeedbackThreadHandler creates a handler that opens threads at level.
// limiter and metrics may be nil.
func NewFeedbackThreadHandler(threads FeedbackThreadCreator, level entities.FeedbackLevel, limiter *RateLimiter, metrics *observability.Metrics) *FeedbackThreadHandler {
	return &FeedbackThreadHandler{
		threads: threads,
		level:   level,
		limiter: limiter,
		metrics: metrics,
	}
}

// SubmitFeedback handles POST /ajax/new_bvl_feedback.php and POST /api/feedback/threads.
// Form fields: comment and candID (required), input_type.
func (h *FeedbackThreadHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFeedbackFormBytes)
	if err := parseForm(r); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "invalid form body")
		return
	}

	comment, hasComment := postField(r, "comment")
	candID, hasCandID := postField(r, "candID")
	inputType, _ := postField(r, "input_type")

	if !hasComment || !hasCandID {
		respondWithError(w, r, http.StatusBadRequest, "comment and candID are required")
		return
	}

	cand, err := strconv.ParseInt(strings.TrimSpace(candID), 10, 64)
	if err != nil || cand <= 0 {
		respondWithError(w, r, http.StatusBadRequest, "candID must be a positive integer")
		return
	}

	if h.limiter != nil {
		if allowed, retryAfter := h.limiter.Allow(r.Context(), "feedback:rate:"+clientIP(r)); !allowed {
			observability.RecordRateLimited(r.Context(), h.metrics)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
			respondWithError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	trace.SpanFromContext(r.Context()).AddEvent("feedback.create_thread")

	entry, err := h.threads.CreateThread(r.Context(), entities.NewThread{
		CandID:    cand,
		Level:     h.level,
		InputType: inputType,
		Comment:   comment,
		Public:    entities.FlagYes,
	})
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Type == apperrors.ErrorTypeValidation {
			respondWithError(w, r, appErr.HTTPStatus(), appErr.Message)
			return
		}
		observability.LoggerFromContext(r.Context()).Error().Err(err).Int64("cand_id", cand).Msg("failed to create feedback thread")
		respondWithError(w, r, http.StatusInternalServerError, "failed to create feedback thread")
		return
	}

	respondWithJSON(w, r, http.StatusOK, entry)
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFeedbackFormBytes)
	}
	return r.ParseForm()
}

// postField reports whether name was sent in the body, even when empty.
func postField(r *http.Request, name string) (string, bool) {
	values, ok := r.PostForm[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
