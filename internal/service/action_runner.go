package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/repository"
)

// ActionExecutor runs one action for one campaign.
type ActionExecutor interface {
	Run(ctx context.Context, userID, campaignID string) (*ActionResult, error)
}

// ActionRunner routes jobs to the executor for their action. With Campaigns
// set, a scheduled job whose action ran since it was dispatched is skipped.
type ActionRunner struct {
	Executors map[model.ActionKind]ActionExecutor
	Campaigns repository.CampaignRepositoryInterface
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewActionRunner(logger *logrus.Logger, post, video, outreach ActionExecutor) *ActionRunner {
	return &ActionRunner{
		Executors: map[model.ActionKind]ActionExecutor{
			model.ActionPost:     post,
			model.ActionVideo:    video,
			model.ActionOutreach: outreach,
		},
		Logger: logger,
	}
}

func (r *ActionRunner) Run(ctx context.Context, job model.ActionJob) (*ActionResult, error) {
	exec, ok := r.Executors[job.Action]
	if !ok || exec == nil {
		return nil, fmt.Errorf("no executor for action %q", job.Action)
	}
	if job.Scheduled && r.Campaigns != nil {
		c, err := r.Campaigns.GetForUser(ctx, job.UserID, job.CampaignID)
		if err != nil {
			return nil, err
		}
		if !IntervalElapsed(c, job.Action, r.now()) {
			return skipped(job.Action, job.CampaignID, SkipNotDue), nil
		}
	}
	return exec.Run(ctx, job.UserID, job.CampaignID)
}

func (r *ActionRunner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Handle is the queue handler form of Run. Skips are successes.
func (r *ActionRunner) Handle(ctx context.Context, job model.ActionJob) error {
	log := r.Logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"user_id":     job.UserID,
		"campaign_id": job.CampaignID,
		"action":      job.Action,
	})

	result, err := r.Run(ctx, job)
	if err != nil {
		log.WithError(err).Error("action failed")
		return err
	}
	if result.SkipAction {
		log.WithField("reason", result.Reason).Info("action skipped")
		return nil
	}
	log.Info("action completed")
	return nil
}
