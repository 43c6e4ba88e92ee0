// internal/model/campaign.go
package model

import (
	"time"

	"github.com/lib/pq"
)

type Campaign struct {
	ID             string `db:"id" json:"id"`
	UserID         string `db:"user_id" json:"user_id"`
	Name           string `db:"name" json:"name"`
	AppName        string `db:"app_name" json:"app_name"`
	AppDescription string `db:"app_description" json:"app_description"`
	TargetKeyword  string `db:"target_keyword" json:"target_keyword"`
	IsActive       bool   `db:"is_active" json:"is_active"`
	IsPaused       bool   `db:"is_paused" json:"is_paused"`

	PostFrequency          *string  `db:"post_frequency" json:"post_frequency,omitempty"`
	PostFrequencyHours     *float64 `db:"post_frequency_hours" json:"post_frequency_hours,omitempty"`
	VideoFrequency         *string  `db:"video_frequency" json:"video_frequency,omitempty"`
	VideoFrequencyHours    *float64 `db:"video_frequency_hours" json:"video_frequency_hours,omitempty"`
	OutreachFrequency      *string  `db:"outreach_frequency" json:"outreach_frequency,omitempty"`
	OutreachFrequencyHours *float64 `db:"outreach_frequency_hours" json:"outreach_frequency_hours,omitempty"`

	LastPostAt     *time.Time `db:"last_post_at" json:"last_post_at,omitempty"`
	LastVideoAt    *time.Time `db:"last_video_at" json:"last_video_at,omitempty"`
	LastOutreachAt *time.Time `db:"last_outreach_at" json:"last_outreach_at,omitempty"`

	PostPlatforms  pq.StringArray `db:"post_platforms" json:"post_platforms"`
	VideoPlatforms pq.StringArray `db:"video_platforms" json:"video_platforms"`

	OutreachEnabled  *bool  `db:"outreach_enabled" json:"outreach_enabled,omitempty"`
	MaxResultsPerDay *int   `db:"max_results_per_day" json:"max_results_per_day,omitempty"`
	SenderVerified   bool   `db:"sender_verified" json:"sender_verified"`
	SenderEmail      string `db:"sender_email" json:"sender_email"`
	SenderName       string `db:"sender_name" json:"sender_name"`
	OutreachSubject  string `db:"outreach_subject" json:"outreach_subject"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`

	// ConnectedPlatforms is loaded from the user's social connections.
	ConnectedPlatforms []Platform `db:"-" json:"connected_platforms"`
}

// ActionSchedule is the per-action slice of the campaign configuration.
type ActionSchedule struct {
	Frequency      string
	FrequencyHours float64
	LastRunAt      *time.Time
}

// Schedule returns the frequency settings and last run time for kind.
func (c *Campaign) Schedule(kind ActionKind) ActionSchedule {
	var s ActionSchedule
	switch kind {
	case ActionPost:
		s = ActionSchedule{Frequency: deref(c.PostFrequency), FrequencyHours: derefFloat(c.PostFrequencyHours), LastRunAt: c.LastPostAt}
	case ActionVideo:
		s = ActionSchedule{Frequency: deref(c.VideoFrequency), FrequencyHours: derefFloat(c.VideoFrequencyHours), LastRunAt: c.LastVideoAt}
	case ActionOutreach:
		s = ActionSchedule{Frequency: deref(c.OutreachFrequency), FrequencyHours: derefFloat(c.OutreachFrequencyHours), LastRunAt: c.LastOutreachAt}
	}
	return s
}

// EnabledPlatforms returns the canonical platforms enabled for kind.
// Unknown names stored by older clients are ignored.
func (c *Campaign) EnabledPlatforms(kind ActionKind) []Platform {
	var raw []string
	switch kind {
	case ActionPost:
		raw = c.PostPlatforms
	case ActionVideo:
		raw = c.VideoPlatforms
	default:
		return nil
	}
	out := make([]Platform, 0, len(raw))
	for _, name := range raw {
		p, err := ParsePlatform(name)
		if err != nil {
			continue
		}
		if (kind == ActionPost && p.SupportsPosts()) || (kind == ActionVideo && p.SupportsVideos()) {
			out = append(out, p)
		}
	}
	return out
}

// ActivePlatforms returns the platforms that are both enabled for kind and
// connected by the user.
func (c *Campaign) ActivePlatforms(kind ActionKind) []Platform {
	var out []Platform
	for _, p := range c.EnabledPlatforms(kind) {
		if contains(c.ConnectedPlatforms, p) && !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// IsOutreachEnabled treats an unset flag as enabled.
func (c *Campaign) IsOutreachEnabled() bool {
	return c.OutreachEnabled == nil || *c.OutreachEnabled
}

// Runnable reports whether the campaign takes part in sweeps.
func (c *Campaign) Runnable() bool {
	return c.IsActive && !c.IsPaused
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
