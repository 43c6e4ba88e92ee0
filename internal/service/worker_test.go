package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

// MockHandler fails the first `failures` attempts of every job with err.
type MockHandler struct {
	mu       sync.Mutex
	calls    map[string]int
	failures int
	err      error
	done     func()
}

func (m *MockHandler) Handle(ctx context.Context, job model.ActionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[job.ID]++
	if m.calls[job.ID] <= m.failures {
		return m.err
	}
	if m.done != nil {
		m.done()
	}
	return nil
}

func (m *MockHandler) count(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func TestWorker(t *testing.T) {
	jobChan := make(chan model.ActionJob, 2)
	jobChan <- model.ActionJob{ID: "j1", Action: model.ActionPost}
	jobChan <- model.ActionJob{ID: "j2", Action: model.ActionOutreach}

	var wg sync.WaitGroup
	wg.Add(2)
	handler := &MockHandler{calls: map[string]int{}, done: wg.Done}

	worker := NewWorker(handler, jobChan, 3, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	// Wait until worker processes both jobs
	wg.Wait()
	assert.Equal(t, 1, handler.count("j1"))
	assert.Equal(t, 1, handler.count("j2"))
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	handler := &MockHandler{calls: map[string]int{}, failures: 2, err: errors.New("timeout")}
	sleeper := &recordingSleeper{}
	worker := NewWorker(handler, nil, 3, quietLogger())
	worker.Sleep = sleeper.Sleep

	worker.process(context.Background(), model.ActionJob{ID: "j1"})

	assert.Equal(t, 3, handler.count("j1"))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeper.delays)
}

func TestWorkerGivesUpAfterMaxRetries(t *testing.T) {
	handler := &MockHandler{calls: map[string]int{}, failures: 10, err: errors.New("timeout")}
	worker := NewWorker(handler, nil, 2, quietLogger())
	worker.Sleep = (&recordingSleeper{}).Sleep

	worker.process(context.Background(), model.ActionJob{ID: "j1"})
	assert.Equal(t, 3, handler.count("j1"))
}

func TestWorkerDoesNotRetryPermanentErrors(t *testing.T) {
	for _, err := range []error{
		appErrors.Permanent(errors.New("delivered but not recorded")),
		appErrors.NewConfigError("RESEND_API_KEY"),
		appErrors.NewCampaignNotFound("c1"),
	} {
		handler := &MockHandler{calls: map[string]int{}, failures: 10, err: err}
		worker := NewWorker(handler, nil, 3, quietLogger())
		worker.Sleep = (&recordingSleeper{}).Sleep

		worker.process(context.Background(), model.ActionJob{ID: "j1"})
		assert.Equal(t, 1, handler.count("j1"), err.Error())
	}
}

func TestWorkerStopsOnClosedChannel(t *testing.T) {
	jobChan := make(chan model.ActionJob)
	close(jobChan)
	worker := NewWorker(&MockHandler{calls: map[string]int{}}, jobChan, 0, quietLogger())

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerDoesNotRepeatPublishedContent(t *testing.T) {
	svc, _, usage, runs, pub := newContentFixture()
	runs.completeErr = errDB
	runner := NewActionRunner(quietLogger(), svc.For(model.ActionPost), svc.For(model.ActionVideo), nil)

	worker := NewWorker(runner, nil, 3, quietLogger())
	sleeper := &recordingSleeper{}
	worker.Sleep = sleeper.Sleep

	worker.process(context.Background(), model.ActionJob{ID: "j1", UserID: "u1", CampaignID: "c1", Action: model.ActionPost})

	assert.Len(t, pub.requests, 1)
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, 0, usage.used(model.ResourcePosts))
}
