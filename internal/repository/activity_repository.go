package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/moehefner/streb/internal/model"
)

type ActivityRepositoryInterface interface {
	ListRecent(ctx context.Context, campaignID string, limit int) ([]model.ActivityLog, error)
}

type ActivityRepository struct {
	DB *sqlx.DB
}

// ListRecent returns the newest activity rows first.
func (r *ActivityRepository) ListRecent(ctx context.Context, campaignID string, limit int) ([]model.ActivityLog, error) {
	logs := []model.ActivityLog{}
	err := r.DB.SelectContext(ctx, &logs, `
		SELECT id, user_id, campaign_id, action_type, result, details, created_at
		FROM activity_logs WHERE campaign_id = $1
		ORDER BY created_at DESC LIMIT $2`, campaignID, limit)
	return logs, err
}

func insertActivity(ctx context.Context, q sqlx.QueryerContext, a *model.ActivityLog) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	details := a.Details
	if len(details) == 0 {
		details = []byte("{}")
	}
	return sqlx.GetContext(ctx, q, &a.ID, `
		INSERT INTO activity_logs (user_id, campaign_id, action_type, result, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.UserID, a.CampaignID, a.ActionType, a.Result, string(details), a.CreatedAt)
}

var _ ActivityRepositoryInterface = (*ActivityRepository)(nil)
