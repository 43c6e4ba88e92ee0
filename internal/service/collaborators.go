package service

import (
	"context"
	"time"

	"github.com/moehefner/streb/internal/model"
)

// LeadFinder discovers prospects for a keyword, best matches first.
type LeadFinder interface {
	FindLeads(ctx context.Context, q model.LeadQuery) ([]model.Lead, error)
}

// MessageGenerator writes the body of an outreach e-mail.
type MessageGenerator interface {
	GenerateOutreachBody(ctx context.Context, c model.CampaignContext, lead model.Lead) (string, error)
}

// EmailSender delivers one e-mail through the provider.
type EmailSender interface {
	Send(ctx context.Context, msg model.OutboundEmail) (model.SendReceipt, error)
}

// BillingCycleResolver never fails; it falls back to the calendar month.
type BillingCycleResolver interface {
	CycleEnd(ctx context.Context, userID string, now time.Time) time.Time
}

// ContentPublisher runs the post and video pipelines.
type ContentPublisher interface {
	Publish(ctx context.Context, req model.ContentRequest) (*model.ContentResult, error)
}

// Readiness is implemented by clients that need credentials. Ready returns
// a configuration error when they are missing.
type Readiness interface {
	Ready() error
}

func checkReady(deps ...any) error {
	for _, d := range deps {
		if r, ok := d.(Readiness); ok {
			if err := r.Ready(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sleeper blocks for d or until ctx is done.
func Sleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
