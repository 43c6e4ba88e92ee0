// internal/model/outreach_lead.go
package model

import (
	"strings"
	"time"
)

// LeadStatus is the lifecycle state of one contact attempt.
type LeadStatus string

const (
	LeadDiscovered   LeadStatus = "discovered"
	LeadSent         LeadStatus = "sent"
	LeadDelivered    LeadStatus = "delivered"
	LeadOpened       LeadStatus = "opened"
	LeadClicked      LeadStatus = "clicked"
	LeadReplied      LeadStatus = "replied"
	LeadConverted    LeadStatus = "converted"
	LeadBounced      LeadStatus = "bounced"
	LeadUnsubscribed LeadStatus = "unsubscribed"
	LeadSkipped      LeadStatus = "skipped"
	LeadFailed       LeadStatus = "failed"
)

// ContactedStatuses mark a lead as already successfully contacted.
var ContactedStatuses = []LeadStatus{
	LeadSent, LeadDelivered, LeadOpened, LeadClicked, LeadReplied, LeadConverted,
}

// SuppressedStatuses permanently exclude an address from outreach.
var SuppressedStatuses = []LeadStatus{LeadBounced, LeadUnsubscribed}

// SkipReason explains why a lead was not contacted.
type SkipReason string

const (
	SkipAlreadyContacted    SkipReason = "already_contacted"
	SkipSuppressedRecipient SkipReason = "suppressed_recipient"
)

// Lead is a prospect returned by lead discovery.
// LeadQuery asks the finder for Limit leads, skipping the first Offset
// results that earlier runs already went through.
type LeadQuery struct {
	Keyword string
	Limit   int
	Offset  int
}

type Lead struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	LinkedInURL string `json:"linkedin_url"`
}

// FirstName is the first word of the lead's name.
func (l Lead) FirstName() string {
	parts := strings.Fields(l.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// OutreachLead is the ledger row written for every contact attempt.
type OutreachLead struct {
	ID          int64      `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	CampaignID  string     `db:"campaign_id" json:"campaign_id"`
	Email       string     `db:"email" json:"email"`
	Name        string     `db:"name" json:"name"`
	Title       string     `db:"title" json:"title"`
	Company     string     `db:"company" json:"company"`
	LinkedInURL string     `db:"linkedin_url" json:"linkedin_url"`
	Status      LeadStatus `db:"status" json:"status"`
	SkipReason  *string    `db:"skip_reason" json:"skip_reason,omitempty"`
	LastError   *string    `db:"last_error" json:"last_error,omitempty"`
	MessageID   *string    `db:"message_id" json:"message_id,omitempty"`
	Subject     string     `db:"subject" json:"subject"`
	Body        string     `db:"body" json:"body"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// NewOutreachLead starts a ledger row for lead.
func NewOutreachLead(userID, campaignID string, lead Lead, status LeadStatus) *OutreachLead {
	return &OutreachLead{
		UserID:      userID,
		CampaignID:  campaignID,
		Email:       NormalizeEmail(lead.Email),
		Name:        lead.Name,
		Title:       lead.Title,
		Company:     lead.Company,
		LinkedInURL: lead.LinkedInURL,
		Status:      status,
	}
}

// NormalizeEmail lowercases and trims an address for comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StatusStrings converts statuses for driver array parameters.
func StatusStrings(statuses []LeadStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
