package service

import (
	"time"

	"github.com/moehefner/streb/internal/model"
)

var frequencyPresets = map[model.ActionKind]map[string]float64{
	model.ActionPost: {
		"twice_daily":   12,
		"daily":         24,
		"every_6_hours": 6,
	},
	model.ActionVideo: {
		"daily":        24,
		"every_2_days": 48,
		"every_3_days": 72,
		"weekly":       168,
	},
	model.ActionOutreach: {
		"daily":        24,
		"every_2_days": 48,
		"weekly":       168,
	},
}

var defaultIntervalHours = map[model.ActionKind]float64{
	model.ActionPost:     6,
	model.ActionVideo:    48,
	model.ActionOutreach: 24,
}

// IsFrequencyPreset reports whether name is a known preset for kind.
func IsFrequencyPreset(kind model.ActionKind, name string) bool {
	_, ok := frequencyPresets[kind][name]
	return ok
}

// ResolveIntervalHours picks the numeric override, then the preset, then the
// action default.
func ResolveIntervalHours(kind model.ActionKind, s model.ActionSchedule) float64 {
	if s.FrequencyHours > 0 {
		return s.FrequencyHours
	}
	if hours, ok := frequencyPresets[kind][s.Frequency]; ok {
		return hours
	}
	return defaultIntervalHours[kind]
}

// DueActions returns the actions that should run for the campaign now, in
// post, video, outreach order. It reads nothing but its arguments.
func DueActions(c *model.Campaign, quota model.Quota, now time.Time) []model.ActionKind {
	due := []model.ActionKind{}
	for _, kind := range model.ActionKinds {
		if IsDue(c, kind, quota.For(kind), now) {
			due = append(due, kind)
		}
	}
	return due
}

// IsDue evaluates a single action.
func IsDue(c *model.Campaign, kind model.ActionKind, usage model.UsageCounters, now time.Time) bool {
	switch kind {
	case model.ActionPost, model.ActionVideo:
		if len(c.ActivePlatforms(kind)) == 0 {
			return false
		}
	case model.ActionOutreach:
		if !c.IsOutreachEnabled() {
			return false
		}
	default:
		return false
	}

	if usage.Exhausted() {
		return false
	}
	return IntervalElapsed(c, kind, now)
}

// IntervalElapsed reports whether the action's interval has passed since it
// last ran. An action that never ran is always elapsed.
func IntervalElapsed(c *model.Campaign, kind model.ActionKind, now time.Time) bool {
	s := c.Schedule(kind)
	if s.LastRunAt == nil {
		return true
	}
	interval := time.Duration(ResolveIntervalHours(kind, s) * float64(time.Hour))
	return now.Sub(*s.LastRunAt) >= interval
}
