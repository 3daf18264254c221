package repositories

import (
	"context"

	"github.com/aces/bvlfeedback/internal/domain/entities"
)

// FeedbackThreadRepository defines the interface for feedback thread persistence.
type FeedbackThreadRepository interface {
	// CreateThread stores a new thread together with its first entry atomically.
	CreateThread(ctx context.Context, thread *entities.FeedbackThread, entry *entities.FeedbackEntry) error
}
