package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/moehefner/streb/internal/model"
)

type UsageRepositoryInterface interface {
	GetUsage(ctx context.Context, userID string, resource model.ResourceKind) (model.UsageCounters, error)
	GetQuota(ctx context.Context, userID string) (model.Quota, error)
}

type UsageRepository struct {
	DB *sqlx.DB
}

// GetUsage returns a zero limit when the user has no counter row, which
// reads as exhausted.
func (r *UsageRepository) GetUsage(ctx context.Context, userID string, resource model.ResourceKind) (model.UsageCounters, error) {
	u := model.UsageCounters{UserID: userID, Resource: resource}
	err := r.DB.GetContext(ctx, &u,
		`SELECT user_id, resource, used, limit_value FROM usage_counters WHERE user_id = $1 AND resource = $2`,
		userID, resource)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	return u, err
}

func (r *UsageRepository) GetQuota(ctx context.Context, userID string) (model.Quota, error) {
	rows := []model.UsageCounters{}
	err := r.DB.SelectContext(ctx, &rows,
		`SELECT user_id, resource, used, limit_value FROM usage_counters WHERE user_id = $1`, userID)
	if err != nil {
		return model.Quota{}, err
	}

	q := model.Quota{
		Posts:    model.UsageCounters{UserID: userID, Resource: model.ResourcePosts},
		Videos:   model.UsageCounters{UserID: userID, Resource: model.ResourceVideos},
		Outreach: model.UsageCounters{UserID: userID, Resource: model.ResourceOutreachEmails},
	}
	for _, u := range rows {
		switch u.Resource {
		case model.ResourcePosts:
			q.Posts = u
		case model.ResourceVideos:
			q.Videos = u
		case model.ResourceOutreachEmails:
			q.Outreach = u
		}
	}
	return q, nil
}

func incrementUsage(ctx context.Context, q sqlx.ExecerContext, userID string, resource model.ResourceKind, amount int) error {
	if amount <= 0 {
		return nil
	}
	res, err := q.ExecContext(ctx,
		`UPDATE usage_counters SET used = used + $1, updated_at = NOW() WHERE user_id = $2 AND resource = $3`,
		amount, userID, resource)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("usage counter row missing for " + userID + "/" + string(resource))
	}
	return nil
}

var _ UsageRepositoryInterface = (*UsageRepository)(nil)
