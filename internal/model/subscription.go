package model

import "time"

// Subscription links a user to the billing provider.
type Subscription struct {
	UserID               string     `db:"user_id" json:"user_id"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
}
