// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/repository"
)

// CampaignService backs the dashboard endpoints.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	UsageRepo    repository.UsageRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	ActivityRepo repository.ActivityRepositoryInterface
	Billing      BillingCycleResolver
	MaxPerDay    int
	RunInterval  time.Duration
	Logger       *logrus.Logger
	Now          func() time.Time
}

type CampaignDetails struct {
	Campaign   *model.Campaign    `json:"campaign"`
	Quota      model.Quota        `json:"quota"`
	DueActions []model.ActionKind `json:"due_actions"`
	Stats      map[string]int     `json:"stats"`

	RecentActivity []model.ActivityLog `json:"recent_activity"`
}

// recentActivityLimit is how many activity rows the details view shows.
const recentActivityLimit = 20

// SettingsUpdate carries the user-editable schedule settings. Nil fields are
// left unchanged.
type SettingsUpdate struct {
	IsPaused               *bool    `json:"is_paused"`
	PostFrequency          *string  `json:"post_frequency" validate:"omitempty,oneof=twice_daily daily every_6_hours"`
	PostFrequencyHours     *float64 `json:"post_frequency_hours" validate:"omitempty,gt=0,lte=720"`
	VideoFrequency         *string  `json:"video_frequency" validate:"omitempty,oneof=daily every_2_days every_3_days weekly"`
	VideoFrequencyHours    *float64 `json:"video_frequency_hours" validate:"omitempty,gt=0,lte=720"`
	OutreachFrequency      *string  `json:"outreach_frequency" validate:"omitempty,oneof=daily every_2_days weekly"`
	OutreachFrequencyHours *float64 `json:"outreach_frequency_hours" validate:"omitempty,gt=0,lte=720"`
	PostPlatforms          []string `json:"post_platforms" validate:"omitempty,dive,required"`
	VideoPlatforms         []string `json:"video_platforms" validate:"omitempty,dive,required"`
	OutreachEnabled        *bool    `json:"outreach_enabled"`
	MaxResultsPerDay       *int     `json:"max_results_per_day" validate:"omitempty,gte=1,lte=100"`
	OutreachSubject        *string  `json:"outreach_subject" validate:"omitempty,max=200"`
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, userID string, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, userID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, userID, campaignID string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetForUser(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	quota, err := s.UsageRepo.GetQuota(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read quota: %w", err)
	}

	stats, err := s.CampaignRepo.GetLeadStats(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("read lead stats: %w", err)
	}

	due := []model.ActionKind{}
	if campaign.Runnable() {
		due = DueActions(campaign, quota, s.now())
	}

	activity, err := s.ActivityRepo.ListRecent(ctx, campaignID, recentActivityLimit)
	if err != nil {
		s.Logger.WithError(err).WithField("campaign_id", campaignID).Warn("activity lookup failed")
		activity = []model.ActivityLog{}
	}

	return &CampaignDetails{
		Campaign:       campaign,
		Quota:          quota,
		DueActions:     due,
		Stats:          stats,
		RecentActivity: activity,
	}, nil
}

// UpdateSettings applies u after canonicalizing platform names.
func (s *CampaignService) UpdateSettings(ctx context.Context, userID, campaignID string, u SettingsUpdate) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetForUser(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	if u.IsPaused != nil {
		c.IsPaused = *u.IsPaused
	}
	if u.PostFrequency != nil {
		c.PostFrequency = u.PostFrequency
	}
	if u.PostFrequencyHours != nil {
		c.PostFrequencyHours = u.PostFrequencyHours
	}
	if u.VideoFrequency != nil {
		c.VideoFrequency = u.VideoFrequency
	}
	if u.VideoFrequencyHours != nil {
		c.VideoFrequencyHours = u.VideoFrequencyHours
	}
	if u.OutreachFrequency != nil {
		c.OutreachFrequency = u.OutreachFrequency
	}
	if u.OutreachFrequencyHours != nil {
		c.OutreachFrequencyHours = u.OutreachFrequencyHours
	}
	if u.PostPlatforms != nil {
		platforms, err := canonicalPlatforms(u.PostPlatforms, model.ActionPost)
		if err != nil {
			return nil, err
		}
		c.PostPlatforms = platforms
	}
	if u.VideoPlatforms != nil {
		platforms, err := canonicalPlatforms(u.VideoPlatforms, model.ActionVideo)
		if err != nil {
			return nil, err
		}
		c.VideoPlatforms = platforms
	}
	if u.OutreachEnabled != nil {
		c.OutreachEnabled = u.OutreachEnabled
	}
	if u.MaxResultsPerDay != nil {
		c.MaxResultsPerDay = u.MaxResultsPerDay
	}
	if u.OutreachSubject != nil {
		c.OutreachSubject = *u.OutreachSubject
	}

	if err := s.CampaignRepo.UpdateSettings(ctx, c); err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "campaign_id": campaignID}).Info("campaign settings updated")
	return c, nil
}

// PreviewBudget computes the outreach budget a run would get right now.
func (s *CampaignService) PreviewBudget(ctx context.Context, userID, campaignID string) (*SendBudget, error) {
	c, err := s.CampaignRepo.GetForUser(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	usage, err := s.UsageRepo.GetUsage(ctx, userID, model.ResourceOutreachEmails)
	if err != nil {
		return nil, fmt.Errorf("read outreach usage: %w", err)
	}

	now := s.now()
	sentToday, err := s.LeadRepo.CountSentSince(ctx, userID, StartOfDay(now))
	if err != nil {
		s.Logger.WithError(err).WithField("campaign_id", campaignID).Warn("sent-today lookup failed, counting from zero")
		sentToday = 0
	}

	maxPerDay := s.MaxPerDay
	if c.MaxResultsPerDay != nil && *c.MaxResultsPerDay > 0 {
		maxPerDay = *c.MaxResultsPerDay
	}
	budget := ComputeSendBudget(SendBudgetInput{
		Usage:             usage,
		CampaignMaxPerDay: maxPerDay,
		SentToday:         sentToday,
		BillingCycleEnd:   s.Billing.CycleEnd(ctx, userID, now),
		Now:               now,
		RunInterval:       s.RunInterval,
	})
	return &budget, nil
}

func canonicalPlatforms(names []string, kind model.ActionKind) (pq.StringArray, error) {
	platforms, err := model.ParsePlatforms(names)
	if err != nil {
		return nil, appErrors.NewInvalidSettings(err.Error())
	}
	out := make(pq.StringArray, 0, len(platforms))
	for _, p := range platforms {
		if kind == model.ActionPost && !p.SupportsPosts() {
			return nil, appErrors.NewInvalidSettings(fmt.Sprintf("%s does not support posts", p))
		}
		if kind == model.ActionVideo && !p.SupportsVideos() {
			return nil, appErrors.NewInvalidSettings(fmt.Sprintf("%s does not support videos", p))
		}
		out = append(out, string(p))
	}
	return out, nil
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
