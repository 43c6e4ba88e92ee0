package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/metrics"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/repository"
)

// ContentService executes post and video actions through the publishing
// pipeline.
type ContentService struct {
	Campaigns repository.CampaignRepositoryInterface
	Usage     repository.UsageRepositoryInterface
	Runs      repository.RunStoreInterface
	Publisher ContentPublisher
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
	Now       func() time.Time
}

// For binds the service to one action kind.
func (s *ContentService) For(kind model.ActionKind) ActionExecutor {
	return contentExecutor{svc: s, kind: kind}
}

type contentExecutor struct {
	svc  *ContentService
	kind model.ActionKind
}

func (e contentExecutor) Run(ctx context.Context, userID, campaignID string) (*ActionResult, error) {
	return e.svc.Run(ctx, userID, campaignID, e.kind)
}

func (s *ContentService) Run(ctx context.Context, userID, campaignID string, kind model.ActionKind) (*ActionResult, error) {
	if kind != model.ActionPost && kind != model.ActionVideo {
		return nil, fmt.Errorf("content service cannot run %q", kind)
	}
	if err := checkReady(s.Publisher); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, userID, campaignID, kind)
	if err != nil {
		s.Metrics.ActionFinished(string(kind), "error")
		return result, err
	}
	s.Metrics.ActionFinished(string(kind), result.Outcome())
	return result, nil
}

func (s *ContentService) run(ctx context.Context, userID, campaignID string, kind model.ActionKind) (*ActionResult, error) {
	log := s.Logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"campaign_id": campaignID,
		"action":      kind,
	})

	campaign, err := s.Campaigns.GetForUser(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	switch {
	case !campaign.IsActive:
		return skipped(kind, campaignID, SkipCampaignInactive), nil
	case campaign.IsPaused:
		return skipped(kind, campaignID, SkipCampaignPaused), nil
	}

	platforms := campaign.ActivePlatforms(kind)
	if len(platforms) == 0 {
		log.Info("no enabled platform is connected")
		return skipped(kind, campaignID, SkipNoPlatforms), nil
	}

	usage, err := s.Usage.GetUsage(ctx, userID, kind.Resource())
	if err != nil {
		return nil, fmt.Errorf("read %s usage: %w", kind.Resource(), err)
	}
	if usage.Exhausted() {
		return skipped(kind, campaignID, SkipMonthlyLimitReached), nil
	}

	result := &ActionResult{Action: kind, CampaignID: campaignID}
	published, pubErr := s.Publisher.Publish(ctx, model.ContentRequest{
		UserID:         userID,
		CampaignID:     campaignID,
		Action:         kind,
		Platforms:      platforms,
		AppName:        campaign.AppName,
		AppDescription: campaign.AppDescription,
	})
	if pubErr != nil {
		published = &model.ContentResult{Errors: []string{pubErr.Error()}}
	}
	for _, e := range published.Errors {
		result.addError(e)
	}
	result.Published = len(published.Published)
	result.FailedCount = len(platforms) - result.Published
	if result.FailedCount < 0 {
		result.FailedCount = 0
	}

	raw, err := json.Marshal(model.ContentRunDetails{
		Platforms: platforms,
		Published: result.Published,
		Errors:    result.Errors,
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = s.Runs.CompleteRun(ctx, repository.RunCompletion{
		UserID:         userID,
		CampaignID:     campaignID,
		Action:         kind,
		RanAt:          now,
		UsageIncrement: result.Published,
		Activity: &model.ActivityLog{
			UserID:     userID,
			CampaignID: campaignID,
			ActionType: kind,
			Result:     activityResult(result.Published, result.FailedCount),
			Details:    raw,
			CreatedAt:  now,
		},
	})
	if err != nil {
		// never retried: the content is already live
		return result, appErrors.Permanent(fmt.Errorf("finalize %s run: %w", kind, err))
	}

	if result.Published == 0 {
		if pubErr != nil {
			return result, fmt.Errorf("publish %s: %w", kind, pubErr)
		}
		return result, fmt.Errorf("publish %s: no platform accepted the content", kind)
	}

	log.WithFields(logrus.Fields{"published": result.Published, "failed": result.FailedCount}).Info("content run finished")
	return result, nil
}

func (s *ContentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
