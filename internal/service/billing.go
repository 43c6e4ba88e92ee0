package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/repository"
)

// PeriodFetcher reads the current period end from the billing provider.
type PeriodFetcher interface {
	CurrentPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

// BillingService resolves the end of the user's billing cycle.
type BillingService struct {
	Subscriptions repository.SubscriptionRepositoryInterface
	Provider      PeriodFetcher
	Logger        *logrus.Logger
}

// CycleEnd asks the provider first, then the stored period end, and falls
// back to the end of the calendar month. Ends that are not after now are
// ignored.
func (b *BillingService) CycleEnd(ctx context.Context, userID string, now time.Time) time.Time {
	log := b.Logger.WithField("user_id", userID)
	fallback := EndOfMonth(now)

	sub, err := b.Subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("subscription lookup failed, using calendar month")
		return fallback
	}
	if sub == nil {
		return fallback
	}

	if b.Provider != nil && sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID != "" {
		end, err := b.Provider.CurrentPeriodEnd(ctx, *sub.StripeSubscriptionID)
		switch {
		case err != nil:
			log.WithError(err).Warn("billing provider lookup failed")
		case end.After(now):
			return end
		default:
			log.WithField("period_end", end).Warn("billing provider returned a past period end")
		}
	}

	if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
		return *sub.CurrentPeriodEnd
	}
	log.Debug("no usable billing period, using calendar month")
	return fallback
}
