package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/moehefner/streb/internal/model"
)

type fakeSubscriptions struct {
	sub *model.Subscription
	err error
}

func (f fakeSubscriptions) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	return f.sub, f.err
}

type fakePeriods struct {
	end   time.Time
	err   error
	calls int
}

func (f *fakePeriods) CurrentPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	f.calls++
	return f.end, f.err
}

func TestBillingCycleEnd(t *testing.T) {
	now := time.Date(2025, 4, 14, 8, 0, 0, 0, time.UTC)
	monthEnd := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	providerEnd := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	storedEnd := time.Date(2025, 4, 22, 0, 0, 0, 0, time.UTC)
	pastEnd := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	subID := "sub_1"

	tests := []struct {
		name     string
		subs     fakeSubscriptions
		provider *fakePeriods
		want     time.Time
	}{
		{"no subscription", fakeSubscriptions{}, &fakePeriods{end: providerEnd}, monthEnd},
		{"lookup error", fakeSubscriptions{err: errors.New("db")}, &fakePeriods{end: providerEnd}, monthEnd},
		{"provider", fakeSubscriptions{sub: &model.Subscription{StripeSubscriptionID: &subID, CurrentPeriodEnd: &storedEnd}}, &fakePeriods{end: providerEnd}, providerEnd},
		{"provider error uses stored", fakeSubscriptions{sub: &model.Subscription{StripeSubscriptionID: &subID, CurrentPeriodEnd: &storedEnd}}, &fakePeriods{err: errors.New("stripe 500")}, storedEnd},
		{"past provider end", fakeSubscriptions{sub: &model.Subscription{StripeSubscriptionID: &subID}}, &fakePeriods{end: pastEnd}, monthEnd},
		{"stored only", fakeSubscriptions{sub: &model.Subscription{CurrentPeriodEnd: &storedEnd}}, &fakePeriods{end: providerEnd}, storedEnd},
		{"stale stored", fakeSubscriptions{sub: &model.Subscription{CurrentPeriodEnd: &pastEnd}}, &fakePeriods{}, monthEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &BillingService{Subscriptions: tt.subs, Provider: tt.provider, Logger: quietLogger()}
			assert.Equal(t, tt.want, b.CycleEnd(context.Background(), "u1", now))
		})
	}
}

func TestBillingSkipsProviderWithoutSubscriptionID(t *testing.T) {
	p := &fakePeriods{end: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := &BillingService{Subscriptions: fakeSubscriptions{sub: &model.Subscription{}}, Provider: p, Logger: quietLogger()}
	b.CycleEnd(context.Background(), "u1", time.Now())
	assert.Equal(t, 0, p.calls)
}
