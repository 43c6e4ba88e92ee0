package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moehefner/streb/internal/controller"
	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/service"
)

// --- Mock Repositories ---

type MockCampaignRepo struct {
	campaigns []*model.Campaign
	updated   *model.Campaign
}

func (m *MockCampaignRepo) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	return m.campaigns, nil
}

func (m *MockCampaignRepo) GetForUser(ctx context.Context, userID, campaignID string) (*model.Campaign, error) {
	for _, c := range m.campaigns {
		if c.ID == campaignID && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(campaignID)
}

func (m *MockCampaignRepo) ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	var filtered []*model.Campaign
	for _, c := range m.campaigns {
		if c.UserID != userID {
			continue
		}
		if status == "paused" && !c.IsPaused {
			continue
		}
		if status == "active" && (c.IsPaused || !c.IsActive) {
			continue
		}
		filtered = append(filtered, c)
	}
	total := len(filtered)

	// Simulate pagination
	start := offset
	end := offset + limit
	if start > total {
		return []*model.Campaign{}, total, nil
	}
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func (m *MockCampaignRepo) UpdateSettings(ctx context.Context, c *model.Campaign) error {
	m.updated = c
	return nil
}

func (m *MockCampaignRepo) GetLeadStats(ctx context.Context, campaignID string) (map[string]int, error) {
	return map[string]int{"sent": 3, "total": 3}, nil
}

type MockUsageRepo struct{}

func (m *MockUsageRepo) GetUsage(ctx context.Context, userID string, resource model.ResourceKind) (model.UsageCounters, error) {
	return model.UsageCounters{UserID: userID, Resource: resource, Used: 0, Limit: 300}, nil
}

func (m *MockUsageRepo) GetQuota(ctx context.Context, userID string) (model.Quota, error) {
	return model.Quota{
		Posts:    model.UsageCounters{Limit: 100},
		Videos:   model.UsageCounters{Limit: 10},
		Outreach: model.UsageCounters{Limit: 300},
	}, nil
}

type MockActivityRepo struct{}

func (m *MockActivityRepo) ListRecent(ctx context.Context, campaignID string, limit int) ([]model.ActivityLog, error) {
	return []model.ActivityLog{{ID: 1, CampaignID: campaignID, ActionType: model.ActionOutreach, Result: model.ActivitySkipped}}, nil
}

type MockLeadRepo struct{}

func (m *MockLeadRepo) FindPriorContact(ctx context.Context, userID, campaignID, email string, statuses []model.LeadStatus) (bool, error) {
	return false, nil
}

func (m *MockLeadRepo) InsertLeadRecord(ctx context.Context, rec *model.OutreachLead) error {
	return nil
}

func (m *MockLeadRepo) CountSentSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return 0, nil
}

func (m *MockLeadRepo) CountLeads(ctx context.Context, userID, campaignID string) (int, error) {
	return 0, nil
}

type fixedBilling struct{ end time.Time }

func (f fixedBilling) CycleEnd(ctx context.Context, userID string, now time.Time) time.Time {
	return f.end
}

type stubRunner struct {
	result *service.ActionResult
	err    error
	job    model.ActionJob
}

func (s *stubRunner) Run(ctx context.Context, job model.ActionJob) (*service.ActionResult, error) {
	s.job = job
	return s.result, s.err
}

// --- Helpers ---

var now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newController(repo *MockCampaignRepo, runner *stubRunner) (*controller.CampaignController, http.Handler) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &service.CampaignService{
		CampaignRepo: repo,
		UsageRepo:    &MockUsageRepo{},
		LeadRepo:     &MockLeadRepo{},
		ActivityRepo: &MockActivityRepo{},
		Billing:      fixedBilling{end: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		MaxPerDay:    service.DefaultMaxPerDay,
		RunInterval:  time.Hour,
		Logger:       logger,
		Now:          func() time.Time { return now },
	}
	ctrl := controller.NewCampaignController(svc, runner, logger)
	r := chi.NewRouter()
	ctrl.Routes(r)
	return ctrl, r
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(controller.UserHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	return w, res
}

// --- Tests ---

func TestListCampaignsPagination(t *testing.T) {
	repo := &MockCampaignRepo{}
	for i := 0; i < 25; i++ {
		repo.campaigns = append(repo.campaigns, &model.Campaign{
			ID:       string(rune('a' + i)),
			UserID:   "user_1",
			IsActive: true,
		})
	}
	_, h := newController(repo, &stubRunner{})

	w, res := do(t, h, http.MethodGet, "/campaigns?page=2&page_size=10", "user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := res["data"].([]interface{})
	assert.Len(t, data, 10)

	pagination := res["pagination"].(map[string]interface{})
	assert.EqualValues(t, 2, pagination["page"])
	assert.EqualValues(t, 10, pagination["page_size"])
	assert.EqualValues(t, 25, pagination["total_count"])
	assert.EqualValues(t, 3, pagination["total_pages"])
}

func TestListCampaignsRequiresUser(t *testing.T) {
	_, h := newController(&MockCampaignRepo{}, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCampaignDetailsNotFound(t *testing.T) {
	_, h := newController(&MockCampaignRepo{}, &stubRunner{})

	w, res := do(t, h, http.MethodGet, "/campaigns/missing", "user_1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, res["error"], "missing")
}

func TestGetCampaignDetailsIncludesDueActions(t *testing.T) {
	repo := &MockCampaignRepo{campaigns: []*model.Campaign{{
		ID: "c1", UserID: "user_1", IsActive: true,
		PostPlatforms:      []string{"twitter"},
		ConnectedPlatforms: []model.Platform{model.PlatformTwitter},
		SenderVerified:     true,
		SenderEmail:        "me@example.com",
		TargetKeyword:      "saas founders",
	}}}
	_, h := newController(repo, &stubRunner{})

	w, res := do(t, h, http.MethodGet, "/campaigns/c1", "user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []interface{}{"post", "outreach"}, res["due_actions"])
	assert.EqualValues(t, 3, res["stats"].(map[string]interface{})["total"])
	assert.Len(t, res["recent_activity"], 1)
}

func TestUpdateSettingsCanonicalizesPlatforms(t *testing.T) {
	repo := &MockCampaignRepo{campaigns: []*model.Campaign{{ID: "c1", UserID: "user_1", IsActive: true}}}
	_, h := newController(repo, &stubRunner{})

	w, _ := do(t, h, http.MethodPatch, "/campaigns/c1/settings", "user_1", map[string]interface{}{
		"post_platforms": []string{"X", "LinkedIn", "x"},
		"post_frequency": "daily",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.updated)
	assert.Equal(t, []string{"twitter", "linkedin"}, []string(repo.updated.PostPlatforms))
	assert.Equal(t, "daily", *repo.updated.PostFrequency)
}

func TestUpdateSettingsRejectsInvalidInput(t *testing.T) {
	repo := &MockCampaignRepo{campaigns: []*model.Campaign{{ID: "c1", UserID: "user_1", IsActive: true}}}
	_, h := newController(repo, &stubRunner{})

	w, _ := do(t, h, http.MethodPatch, "/campaigns/c1/settings", "user_1", map[string]interface{}{
		"post_frequency": "hourly",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, res := do(t, h, http.MethodPatch, "/campaigns/c1/settings", "user_1", map[string]interface{}{
		"video_platforms": []string{"twitter"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, res["error"], "does not support videos")
	assert.Nil(t, repo.updated)
}

func TestPreviewBudget(t *testing.T) {
	repo := &MockCampaignRepo{campaigns: []*model.Campaign{{ID: "c1", UserID: "user_1", IsActive: true}}}
	_, h := newController(repo, &stubRunner{})

	w, res := do(t, h, http.MethodGet, "/campaigns/c1/budget", "user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	// 300 remaining over 30 days, first of 24 hourly runs.
	assert.EqualValues(t, 10, res["dailyBudget"])
	assert.EqualValues(t, 1, res["sendNow"])
}

func TestRunActionSkip(t *testing.T) {
	runner := &stubRunner{result: &service.ActionResult{
		Action: model.ActionOutreach, CampaignID: "c1", SkipAction: true, Reason: service.SkipSenderNotVerified,
	}}
	_, h := newController(&MockCampaignRepo{}, runner)

	w, res := do(t, h, http.MethodPost, "/campaigns/c1/actions/outreach", "user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, res["skipAction"])
	assert.Equal(t, service.SkipSenderNotVerified, res["reason"])
	assert.Equal(t, "user_1", runner.job.UserID)
	assert.Equal(t, model.ActionOutreach, runner.job.Action)
}

func TestRunActionErrors(t *testing.T) {
	runner := &stubRunner{err: appErrors.NewConfigError("RESEND_API_KEY")}
	_, h := newController(&MockCampaignRepo{}, runner)

	w, res := do(t, h, http.MethodPost, "/campaigns/c1/actions/outreach", "user_1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, res["error"], "RESEND_API_KEY")
	assert.Nil(t, res["skipAction"])

	runner.err = appErrors.NewCampaignNotFound("c1")
	w, _ = do(t, h, http.MethodPost, "/campaigns/c1/actions/post", "user_1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	runner.err = errors.New("boom")
	w, _ = do(t, h, http.MethodPost, "/campaigns/c1/actions/dance", "user_1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
