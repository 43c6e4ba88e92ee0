package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/moehefner/streb/internal/model"
)

type SubscriptionRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}

type SubscriptionRepository struct {
	DB *sqlx.DB
}

// GetByUserID returns nil, nil when the user has no subscription row.
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.DB.GetContext(ctx, &s,
		`SELECT user_id, stripe_subscription_id, current_period_end FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

var _ SubscriptionRepositoryInterface = (*SubscriptionRepository)(nil)
