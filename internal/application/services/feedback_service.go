package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/domain/repositories"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
	apperrors "github.com/aces/bvlfeedback/pkg/errors"
)

const (
	maxCommentLength   = 65535
	maxInputTypeLength = 255
)

// FeedbackThreadService creates behavioural feedback threads.
type FeedbackThreadService struct {
	repo    repositories.FeedbackThreadRepository
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

// NewFeedbackThreadService creates a new feedback thread service. metrics may be nil.
func NewFeedbackThreadService(repo repositories.FeedbackThreadRepository, metrics *observability.Metrics) *FeedbackThreadService {
	return &FeedbackThreadService{
		repo:    repo,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// CreateThread opens a new thread at req.Level with req.Comment as its first
// entry and returns that entry.
func (s *FeedbackThreadService) CreateThread(ctx context.Context, req entities.NewThread) (*entities.FeedbackEntry, error) {
	comment := strings.TrimSpace(req.Comment)
	inputType := strings.TrimSpace(req.InputType)

	switch {
	case !req.Level.Valid():
		return nil, apperrors.NewValidationError("unknown feedback level")
	case req.CandID <= 0:
		return nil, apperrors.NewValidationError("candID must be a positive integer")
	case comment == "":
		return nil, apperrors.NewValidationError("comment is required")
	case utf8.RuneCountInString(comment) > maxCommentLength:
		return nil, apperrors.NewValidationError("comment is too long")
	case len(inputType) > maxInputTypeLength:
		return nil, apperrors.NewValidationError("input_type is too long")
	}

	public := req.Public
	if public != entities.FlagYes {
		public = entities.FlagNo
	}

	now := s.now()
	thread := &entities.FeedbackThread{
		ID:        s.newID(),
		CandID:    req.CandID,
		Level:     req.Level,
		InputType: inputType,
		Public:    public,
		Status:    entities.ThreadStatusOpened,
		Active:    entities.FlagYes,
		CreatedAt: now,
	}
	entry := &entities.FeedbackEntry{
		ID:         s.newID(),
		FeedbackID: thread.ID,
		CandID:     thread.CandID,
		Level:      thread.Level,
		InputType:  thread.InputType,
		Comment:    comment,
		Public:     thread.Public,
		Status:     thread.Status,
		CreatedAt:  now,
	}

	if err := s.repo.CreateThread(ctx, thread, entry); err != nil {
		return nil, err
	}

	observability.RecordFeedbackCreated(ctx, s.metrics, string(thread.Level))
	observability.LoggerFromContext(ctx).Info().
		Str("feedback_id", thread.ID).
		Int64("cand_id", thread.CandID).
		Str("level", string(thread.Level)).
		Msg("feedback thread created")

	return entry, nil
}
