package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

type stubExecutor struct {
	result *ActionResult
	err    error
	calls  int
}

func (s *stubExecutor) Run(ctx context.Context, userID, campaignID string) (*ActionResult, error) {
	s.calls++
	return s.result, s.err
}

func TestActionRunnerRoutesByAction(t *testing.T) {
	post := &stubExecutor{result: &ActionResult{Action: model.ActionPost}}
	video := &stubExecutor{result: &ActionResult{Action: model.ActionVideo}}
	outreach := &stubExecutor{result: &ActionResult{Action: model.ActionOutreach, SkipAction: true, Reason: SkipNoLeadsFound}}
	runner := NewActionRunner(quietLogger(), post, video, outreach)

	res, err := runner.Run(context.Background(), model.ActionJob{Action: model.ActionVideo})
	require.NoError(t, err)
	assert.Equal(t, model.ActionVideo, res.Action)
	assert.Equal(t, 1, video.calls)
	assert.Equal(t, 0, post.calls)

	// skips are not failures for the queue
	assert.NoError(t, runner.Handle(context.Background(), model.ActionJob{Action: model.ActionOutreach}))
}

func TestActionRunnerErrors(t *testing.T) {
	boom := errors.New("boom")
	runner := NewActionRunner(quietLogger(), &stubExecutor{err: boom}, nil, nil)

	assert.ErrorIs(t, runner.Handle(context.Background(), model.ActionJob{Action: model.ActionPost}), boom)

	_, err := runner.Run(context.Background(), model.ActionJob{Action: model.ActionVideo})
	assert.ErrorContains(t, err, "no executor")
}

func TestActionRunnerRechecksScheduledJobs(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lastRun := now.Add(-time.Hour)
	c := &model.Campaign{ID: "c1", UserID: "u1", IsActive: true, LastOutreachAt: &lastRun}

	outreach := &stubExecutor{result: &ActionResult{Action: model.ActionOutreach}}
	runner := NewActionRunner(quietLogger(), nil, nil, outreach)
	runner.Campaigns = newFakeCampaigns(c)
	runner.Now = func() time.Time { return now }

	job := model.ActionJob{UserID: "u1", CampaignID: "c1", Action: model.ActionOutreach, Scheduled: true}

	// a duplicate queued behind a run that already finished
	res, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, res.SkipAction)
	assert.Equal(t, SkipNotDue, res.Reason)
	assert.Equal(t, 0, outreach.calls)

	// manual runs ignore the schedule
	job.Scheduled = false
	_, err = runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1, outreach.calls)

	c.LastOutreachAt = nil
	job.Scheduled = true
	_, err = runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, outreach.calls)

	_, err = runner.Run(context.Background(), model.ActionJob{UserID: "u2", CampaignID: "c1", Action: model.ActionOutreach, Scheduled: true})
	assert.True(t, appErrors.IsCampaignNotFound(err))
}
