package service

import (
	"time"

	"github.com/moehefner/streb/internal/model"
)

const (
	// DefaultMaxPerDay caps outreach sends when a campaign has no override.
	DefaultMaxPerDay = 25
	// DefaultRunInterval is the cadence of the sweep.
	DefaultRunInterval = time.Hour

	day = 24 * time.Hour
)

// BlockReason explains a zero send budget.
type BlockReason string

const (
	BlockNone                BlockReason = "none"
	BlockMonthlyLimitReached BlockReason = "monthly_limit_reached"
	BlockDailyBudgetReached  BlockReason = "daily_budget_reached"
)

// SendBudgetInput is everything the calculator needs. Nothing is read from
// storage here.
type SendBudgetInput struct {
	Usage             model.UsageCounters
	CampaignMaxPerDay int
	SentToday         int
	BillingCycleEnd   time.Time
	Now               time.Time
	RunInterval       time.Duration
}

// SendBudget is the number of sends allowed in this invocation. The
// intermediate values are reported for the budget preview endpoint.
type SendBudget struct {
	SendNow          int         `json:"sendNow"`
	BlockReason      BlockReason `json:"blockReason"`
	RemainingMonthly int         `json:"remainingMonthly"`
	DaysLeft         int         `json:"daysLeft"`
	DailyBudget      int         `json:"dailyBudget"`
	RemainingToday   int         `json:"remainingToday"`
	RunsLeftToday    int         `json:"runsLeftToday"`
}

// Blocked reports whether nothing may be sent.
func (b SendBudget) Blocked() bool {
	return b.SendNow == 0
}

// ComputeSendBudget spreads the remaining monthly quota over the days left in
// the billing cycle, then spreads today's share over the sweeps left before
// midnight UTC. Every division rounds up so the last sweep of a day or cycle
// releases whatever is left.
func ComputeSendBudget(in SendBudgetInput) SendBudget {
	maxPerDay := in.CampaignMaxPerDay
	if maxPerDay <= 0 {
		maxPerDay = DefaultMaxPerDay
	}
	interval := in.RunInterval
	if interval <= 0 {
		interval = DefaultRunInterval
	}

	b := SendBudget{BlockReason: BlockNone}

	b.RemainingMonthly = in.Usage.Remaining()
	if b.RemainingMonthly == 0 {
		b.BlockReason = BlockMonthlyLimitReached
		return b
	}

	b.DaysLeft = max(1, ceilDuration(in.BillingCycleEnd.Sub(in.Now), day))
	b.DailyBudget = ceilDiv(b.RemainingMonthly, b.DaysLeft)

	b.RemainingToday = max(0, b.DailyBudget-in.SentToday)
	if b.RemainingToday == 0 {
		b.BlockReason = BlockDailyBudgetReached
		return b
	}

	b.RunsLeftToday = max(1, ceilDuration(EndOfDay(in.Now).Sub(in.Now), interval))
	perRun := ceilDiv(b.RemainingToday, b.RunsLeftToday)

	b.SendNow = min(perRun, maxPerDay, b.RemainingMonthly)
	return b
}

// StartOfDay is midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay is the next midnight UTC after t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// EndOfMonth is the first instant of the next calendar month in UTC.
func EndOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ceilDuration returns ceil(d/unit), or 0 when d is not positive.
func ceilDuration(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + unit - 1) / unit)
}
