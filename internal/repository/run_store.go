package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/moehefner/streb/internal/model"
)

// RunCompletion is everything written when an executor run finishes.
type RunCompletion struct {
	UserID         string
	CampaignID     string
	Action         model.ActionKind
	RanAt          time.Time
	UsageIncrement int
	Activity       *model.ActivityLog
}

// RunStoreInterface groups the writes that must commit together.
type RunStoreInterface interface {
	// RecordSend inserts a sent ledger row and consumes one unit of outreach
	// quota. A row already present for the same message id is a no-op.
	RecordSend(ctx context.Context, rec *model.OutreachLead) error
	// CompleteRun writes the activity row, the usage increment and the last
	// run timestamp.
	CompleteRun(ctx context.Context, run RunCompletion) error
}

type RunStore struct {
	DB *sqlx.DB
}

func (s *RunStore) RecordSend(ctx context.Context, rec *model.OutreachLead) error {
	return Transact(ctx, s.DB, func(tx *sqlx.Tx) error {
		inserted, err := insertLeadRecord(ctx, tx, rec)
		if err != nil {
			return fmt.Errorf("insert sent lead: %w", err)
		}
		if !inserted {
			return nil
		}
		if err := incrementUsage(ctx, tx, rec.UserID, model.ResourceOutreachEmails, 1); err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		return nil
	})
}

func (s *RunStore) CompleteRun(ctx context.Context, run RunCompletion) error {
	return Transact(ctx, s.DB, func(tx *sqlx.Tx) error {
		if run.Activity != nil {
			if err := insertActivity(ctx, tx, run.Activity); err != nil {
				return fmt.Errorf("insert activity: %w", err)
			}
		}
		if err := incrementUsage(ctx, tx, run.UserID, run.Action.Resource(), run.UsageIncrement); err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		if err := touchLastRunAt(ctx, tx, run.CampaignID, run.Action, run.RanAt); err != nil {
			return fmt.Errorf("touch last run: %w", err)
		}
		return nil
	})
}

var _ RunStoreInterface = (*RunStore)(nil)
