package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the scheduler's Prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	actionRuns      *prometheus.CounterVec
	leadsProcessed  *prometheus.CounterVec
	sendBudget      prometheus.Histogram
	sweepDuration   prometheus.Histogram
	sweepDispatched prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streb",
			Name:      "action_runs_total",
			Help:      "Executor runs by action and outcome (ok, skip, error).",
		}, []string{"action", "outcome"}),
		leadsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streb",
			Name:      "outreach_leads_total",
			Help:      "Outreach leads by result.",
		}, []string{"result"}),
		sendBudget: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streb",
			Name:      "outreach_send_budget",
			Help:      "Sends allowed per outreach run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streb",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streb",
			Name:      "sweep_dispatched_total",
			Help:      "Due actions dispatched by sweeps.",
		}),
	}
	reg.MustRegister(m.actionRuns, m.leadsProcessed, m.sendBudget, m.sweepDuration, m.sweepDispatched)
	return m
}

func (m *Metrics) ActionFinished(action, outcome string) {
	if m == nil {
		return
	}
	m.actionRuns.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) LeadProcessed(result string) {
	if m == nil {
		return
	}
	m.leadsProcessed.WithLabelValues(result).Inc()
}

func (m *Metrics) BudgetComputed(sendNow int) {
	if m == nil {
		return
	}
	m.sendBudget.Observe(float64(sendNow))
}

func (m *Metrics) SweepFinished(d time.Duration, dispatched int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
	m.sweepDispatched.Add(float64(dispatched))
}
