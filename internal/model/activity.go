package model

import (
	"encoding/json"
	"time"
)

// ActivityResult is the outcome recorded for one executor run.
type ActivityResult string

const (
	ActivitySuccess ActivityResult = "success"
	ActivityPartial ActivityResult = "partial"
	ActivityFailed  ActivityResult = "failed"
	ActivitySkipped ActivityResult = "skipped"
)

// ActivityLog is one row per executor run.
type ActivityLog struct {
	ID         int64           `db:"id" json:"id"`
	UserID     string          `db:"user_id" json:"user_id"`
	CampaignID string          `db:"campaign_id" json:"campaign_id"`
	ActionType ActionKind      `db:"action_type" json:"action_type"`
	Result     ActivityResult  `db:"result" json:"result"`
	Details    json.RawMessage `db:"details" json:"details"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// OutreachRunDetails is stored as the details of an outreach activity row.
type OutreachRunDetails struct {
	SentCount   int      `json:"sentCount"`
	FailedCount int      `json:"failedCount"`
	LeadsFound  int      `json:"leadsFound"`
	SendBudget  int      `json:"sendBudget"`
	Errors      []string `json:"errors,omitempty"`
	SkipReason  string   `json:"skipReason,omitempty"`
}

// ContentRunDetails is stored for post and video runs.
type ContentRunDetails struct {
	Platforms []Platform `json:"platforms"`
	Published int        `json:"published"`
	Errors    []string   `json:"errors,omitempty"`
}
