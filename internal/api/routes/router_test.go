package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aces/bvlfeedback/internal/api/handlers"
	"github.com/aces/bvlfeedback/internal/domain/entities"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type stubThreads struct{ calls int }

func (s *stubThreads) CreateThread(ctx context.Context, req entities.NewThread) (*entities.FeedbackEntry, error) {
	s.calls++
	return &entities.FeedbackEntry{ID: "e", FeedbackID: "t", CandID: req.CandID, Comment: req.Comment}, nil
}

func newTestRouter(health HealthChecker) (http.Handler, *stubThreads) {
	threads := &stubThreads{}
	handler := handlers.NewFeedbackThreadHandler(threads, entities.FeedbackLevelProfile, nil, nil)
	return NewRouter(handler, []string{"*"}, health, nil).SetupRoutes(), threads
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(stubPinger{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_HealthDatabaseDown(t *testing.T) {
	router, _ := newTestRouter(stubPinger{err: errors.New("down")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_FeedbackPaths(t *testing.T) {
	router, threads := newTestRouter(nil)

	for _, path := range []string{"/ajax/new_bvl_feedback.php", "/api/feedback/threads"} {
		form := url.Values{"comment": {"c"}, "candID": {"9"}}
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	}
	assert.Equal(t, 2, threads.calls)
}

func TestRouter_FeedbackRejectsGet(t *testing.T) {
	router, threads := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ajax/new_bvl_feedback.php", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Zero(t, threads.calls)
}
