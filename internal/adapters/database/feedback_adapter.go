package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/domain/repositories"
	"github.com/aces/bvlfeedback/internal/infrastructure/clients/postgres"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
	apperrors "github.com/aces/bvlfeedback/pkg/errors"
)

const (
	threadTable = "feedback_bvl_thread"
	entryTable  = "feedback_bvl_entry"
)

var feedbackSchema = []string{
	`CREATE TABLE IF NOT EXISTS feedback_bvl_thread (
		feedback_id    UUID PRIMARY KEY,
		cand_id        BIGINT NOT NULL,
		feedback_level VARCHAR(16) NOT NULL,
		feedback_type  VARCHAR(255),
		public         CHAR(1) NOT NULL DEFAULT 'N',
		status         VARCHAR(16) NOT NULL DEFAULT 'opened',
		active         CHAR(1) NOT NULL DEFAULT 'Y',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_bvl_entry (
		entry_id    UUID PRIMARY KEY,
		feedback_id UUID NOT NULL REFERENCES feedback_bvl_thread (feedback_id) ON DELETE CASCADE,
		comment     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureFeedbackSchema creates the feedback tables when they are missing.
func EnsureFeedbackSchema(ctx context.Context, client *postgres.Client) error {
	for _, stmt := range feedbackSchema {
		if _, err := client.DB().ExecContext(ctx, stmt); err != nil {
			return apperrors.NewInternalError("failed to create feedback schema", err)
		}
	}
	return nil
}

// FeedbackThreadAdapter implements feedback thread persistence in Postgres.
type FeedbackThreadAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewFeedbackThreadAdapter creates a new feedback thread adapter. metrics may be nil.
func NewFeedbackThreadAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.FeedbackThreadRepository {
	return &FeedbackThreadAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// CreateThread inserts the thread and its first entry in one transaction.
func (a *FeedbackThreadAdapter) CreateThread(ctx context.Context, thread *entities.FeedbackThread, entry *entities.FeedbackEntry) (err error) {
	if thread == nil || entry == nil {
		return apperrors.NewInternalError("thread and entry are required", fmt.Errorf("nil thread or entry"))
	}

	ctx, span := observability.StartSpan(ctx, "db.feedback.create_thread")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("feedback.level", string(thread.Level)),
		attribute.Int64("candidate.id", thread.CandID),
	)
	defer func() { observability.RecordError(span, err) }()

	threadSQL, threadArgs, err := a.db.Insert(threadTable).Prepared(true).Rows(goqu.Record{
		"feedback_id":    thread.ID,
		"cand_id":        thread.CandID,
		"feedback_level": string(thread.Level),
		"feedback_type":  sql.NullString{String: thread.InputType, Valid: thread.InputType != ""},
		"public":         string(thread.Public),
		"status":         string(thread.Status),
		"active":         string(thread.Active),
		"created_at":     thread.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build feedback thread insert query", err)
	}

	entrySQL, entryArgs, err := a.db.Insert(entryTable).Prepared(true).Rows(goqu.Record{
		"entry_id":    entry.ID,
		"feedback_id": entry.FeedbackID,
		"comment":     entry.Comment,
		"created_at":  entry.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build feedback entry insert query", err)
	}

	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "create_thread", time.Since(start)) }()

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin feedback transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, threadSQL, threadArgs...); err != nil {
		return apperrors.NewInternalError("failed to create feedback thread", err)
	}
	if _, err = tx.ExecContext(ctx, entrySQL, entryArgs...); err != nil {
		return apperrors.NewInternalError("failed to create feedback entry", err)
	}
	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit feedback thread", err)
	}

	return nil
}
