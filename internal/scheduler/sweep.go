package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/metrics"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/queue"
	"github.com/moehefner/streb/internal/repository"
	"github.com/moehefner/streb/internal/service"
)

// ErrSweepInProgress is returned when a sweep is triggered while another
// one is still running in this process.
var ErrSweepInProgress = errors.New("sweep already in progress")

const outboxBatch = 100

// Reconciler settles outbox entries before new sends are scheduled.
type Reconciler interface {
	Reconcile(ctx context.Context, limit int) (int, error)
}

// SweepResult summarizes one tick.
type SweepResult struct {
	StartedAt        time.Time         `json:"startedAt"`
	CampaignsChecked int               `json:"campaignsChecked"`
	Reconciled       int               `json:"reconciled"`
	Dispatched       []model.ActionJob `json:"dispatched"`
	Errors           []string          `json:"errors,omitempty"`
}

// Sweeper evaluates every runnable campaign and dispatches its due actions.
type Sweeper struct {
	Campaigns  repository.CampaignRepositoryInterface
	Usage      repository.UsageRepositoryInterface
	Dispatcher queue.Dispatcher
	Outbox     Reconciler
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
	Now        func() time.Time

	mu sync.Mutex
}

// Sweep processes campaigns one at a time in query order. A failure for one
// campaign is logged and does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	now := s.now()
	result := &SweepResult{StartedAt: now, Dispatched: []model.ActionJob{}}
	defer func() {
		s.Metrics.SweepFinished(s.now().Sub(now), len(result.Dispatched))
	}()

	if s.Outbox != nil {
		n, err := s.Outbox.Reconcile(ctx, outboxBatch)
		if err != nil {
			s.Logger.WithError(err).Warn("outbox reconciliation failed")
			result.Errors = append(result.Errors, err.Error())
		}
		result.Reconciled = n
	}

	campaigns, err := s.Campaigns.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}

	quotas := map[string]model.Quota{}
	for _, c := range campaigns {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.CampaignsChecked++
		log := s.Logger.WithFields(logrus.Fields{"user_id": c.UserID, "campaign_id": c.ID})

		quota, ok := quotas[c.UserID]
		if !ok {
			quota, err = s.Usage.GetQuota(ctx, c.UserID)
			if err != nil {
				log.WithError(err).Warn("quota lookup failed, skipping campaign")
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.ID, err))
				continue
			}
			quotas[c.UserID] = quota
		}

		for _, action := range service.DueActions(c, quota, now) {
			job := model.ActionJob{
				ID:           uuid.NewString(),
				UserID:       c.UserID,
				CampaignID:   c.ID,
				Action:       action,
				Scheduled:    true,
				DispatchedAt: now,
			}
			if err := s.Dispatcher.Dispatch(ctx, job); err != nil {
				log.WithError(err).WithField("action", action).Error("failed to dispatch action")
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", c.ID, action, err))
				continue
			}
			result.Dispatched = append(result.Dispatched, job)
		}
	}

	s.Logger.WithFields(logrus.Fields{
		"campaigns":  result.CampaignsChecked,
		"dispatched": len(result.Dispatched),
		"errors":     len(result.Errors),
	}).Info("sweep finished")
	return result, nil
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
