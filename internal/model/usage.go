package model

// ResourceKind identifies a monthly usage counter.
type ResourceKind string

const (
	ResourcePosts          ResourceKind = "posts"
	ResourceVideos         ResourceKind = "videos"
	ResourceOutreachEmails ResourceKind = "outreach_emails"
)

// UsageCounters is one user's consumption of one resource in the current
// billing cycle.
type UsageCounters struct {
	UserID   string       `db:"user_id" json:"user_id"`
	Resource ResourceKind `db:"resource" json:"resource"`
	Used     int          `db:"used" json:"used"`
	Limit    int          `db:"limit_value" json:"limit"`
}

// Remaining never goes below zero.
func (u UsageCounters) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

func (u UsageCounters) Exhausted() bool {
	return u.Used >= u.Limit
}

// Quota groups the three counters the sweep looks at.
type Quota struct {
	Posts    UsageCounters `json:"posts"`
	Videos   UsageCounters `json:"videos"`
	Outreach UsageCounters `json:"outreach"`
}

// For returns the counter consumed by kind.
func (q Quota) For(kind ActionKind) UsageCounters {
	switch kind {
	case ActionPost:
		return q.Posts
	case ActionVideo:
		return q.Videos
	default:
		return q.Outreach
	}
}
