package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/repository"
)

var errDB = errors.New("connection reset")

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeCampaigns struct {
	campaigns map[string]*model.Campaign
}

func newFakeCampaigns(cs ...*model.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{campaigns: map[string]*model.Campaign{}}
	for _, c := range cs {
		f.campaigns[c.ID] = c
	}
	return f
}

func (f *fakeCampaigns) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	var out []*model.Campaign
	for _, c := range f.campaigns {
		if c.Runnable() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCampaigns) GetForUser(ctx context.Context, userID, campaignID string) (*model.Campaign, error) {
	c, ok := f.campaigns[campaignID]
	if !ok || c.UserID != userID {
		return nil, appErrors.NewCampaignNotFound(campaignID)
	}
	return c, nil
}

func (f *fakeCampaigns) ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	return nil, 0, nil
}

func (f *fakeCampaigns) UpdateSettings(ctx context.Context, c *model.Campaign) error {
	f.campaigns[c.ID] = c
	return nil
}

func (f *fakeCampaigns) GetLeadStats(ctx context.Context, campaignID string) (map[string]int, error) {
	return map[string]int{"total": 0}, nil
}

type fakeActivity struct {
	logs []model.ActivityLog
	err  error
}

func (f *fakeActivity) ListRecent(ctx context.Context, campaignID string, limit int) ([]model.ActivityLog, error) {
	return f.logs, f.err
}

type fakeUsage struct {
	mu       sync.Mutex
	counters map[model.ResourceKind]model.UsageCounters
	err      error
	calls    int
}

func newFakeUsage(used, limit int) *fakeUsage {
	return &fakeUsage{counters: map[model.ResourceKind]model.UsageCounters{
		model.ResourcePosts:          {Resource: model.ResourcePosts, Used: used, Limit: limit},
		model.ResourceVideos:         {Resource: model.ResourceVideos, Used: used, Limit: limit},
		model.ResourceOutreachEmails: {Resource: model.ResourceOutreachEmails, Used: used, Limit: limit},
	}}
}

func (f *fakeUsage) GetUsage(ctx context.Context, userID string, resource model.ResourceKind) (model.UsageCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return model.UsageCounters{}, f.err
	}
	return f.counters[resource], nil
}

func (f *fakeUsage) GetQuota(ctx context.Context, userID string) (model.Quota, error) {
	if f.err != nil {
		return model.Quota{}, f.err
	}
	return model.Quota{
		Posts:    f.counters[model.ResourcePosts],
		Videos:   f.counters[model.ResourceVideos],
		Outreach: f.counters[model.ResourceOutreachEmails],
	}, nil
}

func (f *fakeUsage) IncrementUsage(ctx context.Context, userID string, resource model.ResourceKind, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.counters[resource]
	c.Used += amount
	f.counters[resource] = c
	return nil
}

func (f *fakeUsage) used(resource model.ResourceKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[resource].Used
}

type fakeLeads struct {
	history   map[string]model.LeadStatus
	records   []*model.OutreachLead
	sentToday  int
	total      int
	countedFor string
	countErr   error
	priorErr   error
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{history: map[string]model.LeadStatus{}}
}

func (f *fakeLeads) FindPriorContact(ctx context.Context, userID, campaignID, email string, statuses []model.LeadStatus) (bool, error) {
	if f.priorErr != nil {
		return false, f.priorErr
	}
	status, ok := f.history[model.NormalizeEmail(email)]
	if !ok {
		return false, nil
	}
	for _, s := range statuses {
		if s == status {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLeads) InsertLeadRecord(ctx context.Context, rec *model.OutreachLead) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLeads) CountSentSince(ctx context.Context, userID string, since time.Time) (int, error) {
	f.countedFor = userID
	return f.sentToday, f.countErr
}

func (f *fakeLeads) CountLeads(ctx context.Context, userID, campaignID string) (int, error) {
	return f.total, f.countErr
}

func (f *fakeLeads) withStatus(status model.LeadStatus) []*model.OutreachLead {
	var out []*model.OutreachLead
	for _, r := range f.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// fakeRuns applies writes to the usage fake the way the real store does in
// its transactions.
type fakeRuns struct {
	usage       *fakeUsage
	sent        []*model.OutreachLead
	seen        map[string]bool
	completions []repository.RunCompletion
	recordErr   error
	completeErr error
}

func newFakeRuns(usage *fakeUsage) *fakeRuns {
	return &fakeRuns{usage: usage, seen: map[string]bool{}}
}

func (f *fakeRuns) RecordSend(ctx context.Context, rec *model.OutreachLead) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	if rec.MessageID != nil && f.seen[*rec.MessageID] {
		return nil
	}
	if rec.MessageID != nil {
		f.seen[*rec.MessageID] = true
	}
	f.sent = append(f.sent, rec)
	if f.usage != nil {
		return f.usage.IncrementUsage(ctx, rec.UserID, model.ResourceOutreachEmails, 1)
	}
	return nil
}

func (f *fakeRuns) CompleteRun(ctx context.Context, run repository.RunCompletion) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completions = append(f.completions, run)
	if f.usage != nil && run.UsageIncrement > 0 {
		return f.usage.IncrementUsage(ctx, run.UserID, run.Action.Resource(), run.UsageIncrement)
	}
	return nil
}

type fakeOutbox struct {
	entries    []model.OutboxEntry
	reconciled []int64
	failed     []int64
	insertErr  error
	listErr    error
}

func (f *fakeOutbox) Insert(ctx context.Context, e *model.OutboxEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	e.ID = int64(len(f.entries) + 1)
	e.Status = model.OutboxPending
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]model.OutboxEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.OutboxEntry
	for _, e := range f.entries {
		if e.Status == model.OutboxPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkReconciled(ctx context.Context, id int64) error {
	f.reconciled = append(f.reconciled, id)
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Status = model.OutboxReconciled
		}
	}
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, id int64, lastError string) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeFinder struct {
	leads     []model.Lead
	err       error
	requested int
	offset    int
}

func (f *fakeFinder) FindLeads(ctx context.Context, q model.LeadQuery) ([]model.Lead, error) {
	f.requested = q.Limit
	f.offset = q.Offset
	return f.leads, f.err
}

type fakeGenerator struct {
	failFor map[string]bool
}

func (f *fakeGenerator) GenerateOutreachBody(ctx context.Context, c model.CampaignContext, lead model.Lead) (string, error) {
	if f.failFor[lead.Email] {
		return "", errors.New("model overloaded")
	}
	return "Hi " + lead.FirstName() + ", " + c.AppName + " helps with " + c.TargetKeyword + ".", nil
}

type fakeSender struct {
	sent     []model.OutboundEmail
	failFor  map[string]bool
	notReady bool
}

func (f *fakeSender) Ready() error {
	if f.notReady {
		return appErrors.NewConfigError("RESEND_API_KEY")
	}
	return nil
}

func (f *fakeSender) Send(ctx context.Context, msg model.OutboundEmail) (model.SendReceipt, error) {
	if f.failFor[msg.To] {
		return model.SendReceipt{}, errors.New("422 invalid recipient")
	}
	f.sent = append(f.sent, msg)
	return model.SendReceipt{MessageID: "msg_" + msg.To}, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type fixedBilling time.Time

func (f fixedBilling) CycleEnd(ctx context.Context, userID string, now time.Time) time.Time {
	return time.Time(f)
}
