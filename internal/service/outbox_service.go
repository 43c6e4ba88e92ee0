package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/repository"
)

// OutboxService replays delivered e-mails whose ledger write failed.
type OutboxService struct {
	Outbox repository.OutboxRepositoryInterface
	Runs   repository.RunStoreInterface
	Logger *logrus.Logger
}

// Reconcile records up to limit pending entries. Recording is idempotent on
// the provider message id, so an entry replayed twice is counted once.
func (s *OutboxService) Reconcile(ctx context.Context, limit int) (int, error) {
	entries, err := s.Outbox.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list outbox: %w", err)
	}

	done := 0
	for _, e := range entries {
		log := s.Logger.WithFields(logrus.Fields{"outbox_id": e.ID, "campaign_id": e.CampaignID})

		var rec model.OutreachLead
		if err := json.Unmarshal(e.Payload, &rec); err != nil {
			log.WithError(err).Error("undecodable outbox entry")
			_ = s.Outbox.MarkFailed(ctx, e.ID, err.Error())
			continue
		}
		rec.ID = 0

		if err := s.Runs.RecordSend(ctx, &rec); err != nil {
			log.WithError(err).Warn("outbox replay failed")
			if mErr := s.Outbox.MarkFailed(ctx, e.ID, err.Error()); mErr != nil {
				log.WithError(mErr).Warn("failed to update outbox entry")
			}
			continue
		}
		if err := s.Outbox.MarkReconciled(ctx, e.ID); err != nil {
			log.WithError(err).Warn("failed to mark outbox entry reconciled")
			continue
		}
		done++
	}
	return done, nil
}
