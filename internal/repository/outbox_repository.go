package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/moehefner/streb/internal/model"
)

type OutboxRepositoryInterface interface {
	Insert(ctx context.Context, e *model.OutboxEntry) error
	ListPending(ctx context.Context, limit int) ([]model.OutboxEntry, error)
	MarkReconciled(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
}

type OutboxRepository struct {
	DB *sqlx.DB
}

func (r *OutboxRepository) Insert(ctx context.Context, e *model.OutboxEntry) error {
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Status == "" {
		e.Status = model.OutboxPending
	}
	return r.DB.GetContext(ctx, &e.ID, `
		INSERT INTO outreach_outbox (user_id, campaign_id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
		RETURNING id`,
		e.UserID, e.CampaignID, string(e.Payload), e.Status, e.CreatedAt, e.UpdatedAt)
}

// ListPending returns the oldest unreconciled entries first.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]model.OutboxEntry, error) {
	entries := []model.OutboxEntry{}
	err := r.DB.SelectContext(ctx, &entries, `
		SELECT id, user_id, campaign_id, payload, status, attempts, last_error, created_at, updated_at
		FROM outreach_outbox
		WHERE status = $1
		ORDER BY id
		LIMIT $2`, model.OutboxPending, limit)
	return entries, err
}

func (r *OutboxRepository) MarkReconciled(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE outreach_outbox SET status = $1, updated_at = NOW() WHERE id = $2`, model.OutboxReconciled, id)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE outreach_outbox SET attempts = attempts + 1, last_error = $1, updated_at = NOW() WHERE id = $2`,
		lastError, id)
	return err
}

var _ OutboxRepositoryInterface = (*OutboxRepository)(nil)
