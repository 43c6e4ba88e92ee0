package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/config"
	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/lease"
	"github.com/moehefner/streb/internal/metrics"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/repository"
)

const (
	DefaultSendDelay = 60 * time.Second
	DefaultLeaseTTL  = 30 * time.Minute
)

// OutreachService runs one outreach pass for a campaign: budget, lead
// discovery, then a paced, sequential send loop.
type OutreachService struct {
	Campaigns repository.CampaignRepositoryInterface
	Usage     repository.UsageRepositoryInterface
	Leads     repository.LeadRepositoryInterface
	Runs      repository.RunStoreInterface
	Outbox    repository.OutboxRepositoryInterface
	Billing   BillingCycleResolver
	Finder    LeadFinder
	Generator MessageGenerator
	Sender    EmailSender
	Locker    lease.Locker
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger

	SendDelay   time.Duration
	LeaseTTL    time.Duration
	RunInterval time.Duration
	MaxPerDay   int

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run executes the outreach action. Only one run per campaign holds the
// lease at a time; a concurrent call is skipped.
func (s *OutreachService) Run(ctx context.Context, userID, campaignID string) (*ActionResult, error) {
	if err := checkReady(s.Sender, s.Generator, s.Finder); err != nil {
		return nil, err
	}

	l, err := s.Locker.Obtain(ctx, "outreach:"+campaignID, s.leaseTTL())
	if errors.Is(err, appErrors.ErrLeaseHeld) {
		s.Metrics.ActionFinished(string(model.ActionOutreach), "skip")
		return skipped(model.ActionOutreach, campaignID, SkipRunInProgress), nil
	}
	if err != nil {
		return nil, fmt.Errorf("obtain outreach lease: %w", err)
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.WithError(err).WithField("campaign_id", campaignID).Warn("failed to release outreach lease")
		}
	}()

	result, err := s.run(ctx, l, userID, campaignID)
	switch {
	case err != nil:
		s.Metrics.ActionFinished(string(model.ActionOutreach), "error")
	default:
		s.Metrics.ActionFinished(string(model.ActionOutreach), result.Outcome())
	}
	return result, err
}

func (s *OutreachService) run(ctx context.Context, l lease.Lease, userID, campaignID string) (*ActionResult, error) {
	log := s.Logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"campaign_id": campaignID,
		"action":      model.ActionOutreach,
	})
	now := s.now()

	campaign, err := s.Campaigns.GetForUser(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if reason := outreachGate(campaign); reason != "" {
		log.WithField("reason", reason).Info("outreach skipped")
		return skipped(model.ActionOutreach, campaignID, reason), nil
	}

	usage, err := s.Usage.GetUsage(ctx, userID, model.ResourceOutreachEmails)
	if err != nil {
		return nil, fmt.Errorf("read outreach usage: %w", err)
	}

	cycleEnd := s.Billing.CycleEnd(ctx, userID, now)

	// the daily budget is shared by all of the user's campaigns
	sentToday, err := s.Leads.CountSentSince(ctx, userID, StartOfDay(now))
	if err != nil {
		log.WithError(err).Warn("sent-today lookup failed, counting from zero")
		sentToday = 0
	}

	maxPerDay := s.MaxPerDay
	if campaign.MaxResultsPerDay != nil && *campaign.MaxResultsPerDay > 0 {
		maxPerDay = *campaign.MaxResultsPerDay
	}
	budget := ComputeSendBudget(SendBudgetInput{
		Usage:             usage,
		CampaignMaxPerDay: maxPerDay,
		SentToday:         sentToday,
		BillingCycleEnd:   cycleEnd,
		Now:               now,
		RunInterval:       s.RunInterval,
	})
	s.Metrics.BudgetComputed(budget.SendNow)
	log = log.WithFields(logrus.Fields{"send_now": budget.SendNow, "sent_today": sentToday})

	if budget.Blocked() {
		log.WithField("reason", budget.BlockReason).Info("outreach budget exhausted")
		res := skipped(model.ActionOutreach, campaignID, string(budget.BlockReason))
		res.Budget = &budget
		return res, nil
	}

	seen, err := s.Leads.CountLeads(ctx, userID, campaignID)
	if err != nil {
		log.WithError(err).Warn("lead count lookup failed, searching from the top")
		seen = 0
	}
	leads, err := s.Finder.FindLeads(ctx, model.LeadQuery{
		Keyword: campaign.TargetKeyword,
		Limit:   budget.SendNow,
		Offset:  seen,
	})
	if err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}

	result := &ActionResult{
		Action:     model.ActionOutreach,
		CampaignID: campaignID,
		LeadsFound: len(leads),
		Budget:     &budget,
	}
	if len(leads) == 0 {
		result.SkipAction = true
		result.Reason = SkipNoLeadsFound
	}
	if len(leads) > budget.SendNow {
		leads = leads[:budget.SendNow]
	}

	var runErr error
	attempted := false
	for _, lead := range leads {
		if err := l.Refresh(ctx, s.leaseTTL()); err != nil {
			runErr = appErrors.Permanent(fmt.Errorf("refresh outreach lease: %w", err))
			break
		}
		msg, ok := s.prepareLead(ctx, log, campaign, lead, result)
		if !ok {
			continue
		}
		if attempted {
			if err := s.sleep(ctx, s.sendDelay()); err != nil {
				runErr = fmt.Errorf("outreach run interrupted: %w", err)
				break
			}
		}
		attempted = true
		if err := s.deliver(ctx, log, campaign, lead, msg, result); err != nil {
			runErr = err
			break
		}
	}

	if err := s.finish(context.WithoutCancel(ctx), campaign, result, runErr); err != nil {
		log.WithError(err).Error("failed to record outreach run")
		if runErr == nil {
			runErr = appErrors.Permanent(fmt.Errorf("finalize outreach run: %w", err))
		}
	}

	log.WithFields(logrus.Fields{
		"sent":   result.SentCount,
		"failed": result.FailedCount,
		"leads":  result.LeadsFound,
	}).Info("outreach run finished")

	return result, runErr
}

// prepareLead runs the dedup and suppression checks and generates the
// message. It reports false when the lead will not be sent.
func (s *OutreachService) prepareLead(ctx context.Context, log *logrus.Entry, c *model.Campaign, lead model.Lead, result *ActionResult) (model.OutboundEmail, bool) {
	email := model.NormalizeEmail(lead.Email)
	log = log.WithField("email", email)
	if email == "" {
		result.FailedCount++
		result.addError(fmt.Sprintf("lead %q has no email", lead.Name))
		s.Metrics.LeadProcessed("invalid")
		return model.OutboundEmail{}, false
	}

	contacted, err := s.Leads.FindPriorContact(ctx, c.UserID, c.ID, email, model.ContactedStatuses)
	if err != nil {
		log.WithError(err).Warn("prior-contact lookup failed, treating lead as new")
		contacted = false
	}
	if contacted {
		s.recordSkip(ctx, log, c, lead, model.SkipAlreadyContacted)
		result.FailedCount++
		return model.OutboundEmail{}, false
	}

	suppressed, err := s.Leads.FindPriorContact(ctx, c.UserID, c.ID, email, model.SuppressedStatuses)
	if err != nil {
		log.WithError(err).Warn("suppression lookup failed, treating lead as not suppressed")
		suppressed = false
	}
	if suppressed {
		s.recordSkip(ctx, log, c, lead, model.SkipSuppressedRecipient)
		result.FailedCount++
		return model.OutboundEmail{}, false
	}

	body, err := s.Generator.GenerateOutreachBody(ctx, campaignContext(c), lead)
	if err != nil {
		s.recordFailure(ctx, log, c, lead, fmt.Errorf("generate message: %w", err), result)
		return model.OutboundEmail{}, false
	}

	return model.OutboundEmail{
		From:           fromAddress(c),
		To:             email,
		Subject:        RenderSubject(c, lead),
		Body:           body,
		Tags:           map[string]string{"campaign_id": c.ID, "user_id": c.UserID},
		IdempotencyKey: uuid.NewString(),
	}, true
}

// deliver sends msg and records it. The returned error is set only when a
// delivered message could not be recorded.
func (s *OutreachService) deliver(ctx context.Context, log *logrus.Entry, c *model.Campaign, lead model.Lead, msg model.OutboundEmail, result *ActionResult) error {
	log = log.WithField("email", msg.To)
	receipt, err := s.Sender.Send(ctx, msg)
	if err != nil {
		s.recordFailure(ctx, log, c, lead, fmt.Errorf("send email: %w", err), result)
		return nil
	}

	messageID := receipt.MessageID
	if messageID == "" {
		messageID = msg.IdempotencyKey
	}
	sentAt := s.now()
	rec := model.NewOutreachLead(c.UserID, c.ID, lead, model.LeadSent)
	rec.Subject = msg.Subject
	rec.Body = msg.Body
	rec.MessageID = &messageID
	rec.SentAt = &sentAt

	if err := s.Runs.RecordSend(ctx, rec); err != nil {
		s.park(context.WithoutCancel(ctx), log, rec, err)
		result.addError(fmt.Sprintf("%s: delivered but not recorded: %v", msg.To, err))
		return appErrors.Permanent(fmt.Errorf("record send to %s: %w", msg.To, err))
	}

	result.SentCount++
	s.Metrics.LeadProcessed("sent")
	log.Debug("outreach email sent")
	return nil
}

func (s *OutreachService) recordSkip(ctx context.Context, log *logrus.Entry, c *model.Campaign, lead model.Lead, reason model.SkipReason) {
	rec := model.NewOutreachLead(c.UserID, c.ID, lead, model.LeadSkipped)
	r := string(reason)
	rec.SkipReason = &r
	if err := s.Leads.InsertLeadRecord(ctx, rec); err != nil {
		log.WithError(err).Warn("failed to record skipped lead")
	}
	s.Metrics.LeadProcessed(string(reason))
	log.WithField("reason", reason).Info("lead skipped")
}

func (s *OutreachService) recordFailure(ctx context.Context, log *logrus.Entry, c *model.Campaign, lead model.Lead, cause error, result *ActionResult) {
	result.FailedCount++
	result.addError(fmt.Sprintf("%s: %v", model.NormalizeEmail(lead.Email), cause))

	rec := model.NewOutreachLead(c.UserID, c.ID, lead, model.LeadFailed)
	msg := cause.Error()
	rec.LastError = &msg
	if err := s.Leads.InsertLeadRecord(ctx, rec); err != nil {
		log.WithError(err).Warn("failed to record failed lead")
	}
	s.Metrics.LeadProcessed("failed")
	log.WithError(cause).Warn("lead send failed")
}

// park keeps a delivered message whose ledger write failed so that the
// outbox reconciler can account for it later.
func (s *OutreachService) park(ctx context.Context, log *logrus.Entry, rec *model.OutreachLead, cause error) {
	payload, err := json.Marshal(rec)
	if err == nil {
		err = s.Outbox.Insert(ctx, &model.OutboxEntry{
			UserID:     rec.UserID,
			CampaignID: rec.CampaignID,
			Payload:    payload,
		})
	}
	if err != nil {
		config.LogError(log, "outreach", "park", "delivered email lost from ledger and outbox",
			map[string]any{"cause": cause.Error(), "message_id": rec.MessageID, "email": rec.Email}, err)
		return
	}
	log.WithError(cause).Warn("delivered email parked in outbox")
}

func (s *OutreachService) finish(ctx context.Context, c *model.Campaign, result *ActionResult, runErr error) error {
	details := model.OutreachRunDetails{
		SentCount:   result.SentCount,
		FailedCount: result.FailedCount,
		LeadsFound:  result.LeadsFound,
		Errors:      result.Errors,
		SkipReason:  result.Reason,
	}
	if result.Budget != nil {
		details.SendBudget = result.Budget.SendNow
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}

	outcome := activityResult(result.SentCount, result.FailedCount)
	switch {
	case result.SkipAction:
		outcome = model.ActivitySkipped
	case runErr != nil && result.SentCount > 0:
		outcome = model.ActivityPartial
	case runErr != nil:
		outcome = model.ActivityFailed
	}
	now := s.now()
	return s.Runs.CompleteRun(ctx, repository.RunCompletion{
		UserID:     c.UserID,
		CampaignID: c.ID,
		Action:     model.ActionOutreach,
		RanAt:      now,
		Activity: &model.ActivityLog{
			UserID:     c.UserID,
			CampaignID: c.ID,
			ActionType: model.ActionOutreach,
			Result:     outcome,
			Details:    raw,
			CreatedAt:  now,
		},
	})
}

func outreachGate(c *model.Campaign) string {
	switch {
	case !c.IsActive:
		return SkipCampaignInactive
	case c.IsPaused:
		return SkipCampaignPaused
	case !c.IsOutreachEnabled():
		return SkipOutreachDisabled
	case !c.SenderVerified || c.SenderEmail == "":
		return SkipSenderNotVerified
	case c.TargetKeyword == "":
		return SkipMissingTargetKeyword
	}
	return ""
}

func campaignContext(c *model.Campaign) model.CampaignContext {
	return model.CampaignContext{
		AppName:        c.AppName,
		AppDescription: c.AppDescription,
		TargetKeyword:  c.TargetKeyword,
		SenderName:     c.SenderName,
	}
}

func fromAddress(c *model.Campaign) string {
	if c.SenderName == "" {
		return c.SenderEmail
	}
	return fmt.Sprintf("%s <%s>", c.SenderName, c.SenderEmail)
}

func (s *OutreachService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OutreachService) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return Sleeper(ctx, d)
}

func (s *OutreachService) sendDelay() time.Duration {
	if s.SendDelay > 0 {
		return s.SendDelay
	}
	return DefaultSendDelay
}

func (s *OutreachService) leaseTTL() time.Duration {
	if s.LeaseTTL > 0 {
		return s.LeaseTTL
	}
	return DefaultLeaseTTL
}
