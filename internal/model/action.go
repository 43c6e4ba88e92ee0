package model

import "time"

// ActionKind is one of the scheduled actions a campaign runs.
type ActionKind string

const (
	ActionPost     ActionKind = "post"
	ActionVideo    ActionKind = "video"
	ActionOutreach ActionKind = "outreach"
)

// ActionKinds lists every action in evaluation order.
var ActionKinds = []ActionKind{ActionPost, ActionVideo, ActionOutreach}

func (k ActionKind) Valid() bool {
	switch k {
	case ActionPost, ActionVideo, ActionOutreach:
		return true
	}
	return false
}

// Resource returns the usage counter consumed by the action.
func (k ActionKind) Resource() ResourceKind {
	switch k {
	case ActionPost:
		return ResourcePosts
	case ActionVideo:
		return ResourceVideos
	default:
		return ResourceOutreachEmails
	}
}

// ActionJob is a due action dispatched by a sweep, or a manual run.
// Scheduled jobs are checked again for being due before they run.
type ActionJob struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	CampaignID   string     `json:"campaign_id"`
	Action       ActionKind `json:"action"`
	Scheduled    bool       `json:"scheduled"`
	DispatchedAt time.Time  `json:"dispatched_at"`
}
