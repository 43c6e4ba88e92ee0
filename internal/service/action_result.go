package service

import "github.com/moehefner/streb/internal/model"

// Reasons reported with a skipped action.
const (
	SkipCampaignInactive     = "campaign_inactive"
	SkipCampaignPaused       = "campaign_paused"
	SkipOutreachDisabled     = "outreach_disabled"
	SkipSenderNotVerified    = "sender_not_verified"
	SkipMissingTargetKeyword = "missing_target_keyword"
	SkipRunInProgress        = "run_in_progress"
	SkipNoLeadsFound         = "no_leads_found"
	SkipNoPlatforms          = "no_platforms_connected"
	SkipMonthlyLimitReached  = string(BlockMonthlyLimitReached)
	SkipNotDue               = "not_due"
)

// maxLoggedErrors bounds the errors kept per run.
const maxLoggedErrors = 10

// ActionResult is returned by every executor. SkipAction marks an expected
// no-op; unexpected failures are returned as errors instead.
type ActionResult struct {
	Action      model.ActionKind `json:"action"`
	CampaignID  string           `json:"campaignId"`
	SkipAction  bool             `json:"skipAction"`
	Reason      string           `json:"reason,omitempty"`
	SentCount   int              `json:"sentCount"`
	FailedCount int              `json:"failedCount"`
	LeadsFound  int              `json:"leadsFound"`
	Published   int              `json:"published"`
	Budget      *SendBudget      `json:"budget,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
}

func skipped(action model.ActionKind, campaignID, reason string) *ActionResult {
	return &ActionResult{Action: action, CampaignID: campaignID, SkipAction: true, Reason: reason}
}

func (r *ActionResult) addError(msg string) {
	if len(r.Errors) < maxLoggedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// Outcome is the metrics label for the result.
func (r *ActionResult) Outcome() string {
	if r.SkipAction {
		return "skip"
	}
	return "ok"
}

func activityResult(sent, failed int) model.ActivityResult {
	switch {
	case failed == 0:
		return model.ActivitySuccess
	case sent > 0:
		return model.ActivityPartial
	default:
		return model.ActivityFailed
	}
}
