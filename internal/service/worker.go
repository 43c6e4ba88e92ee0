package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

// JobHandler processes one dispatched action.
type JobHandler interface {
	Handle(ctx context.Context, job model.ActionJob) error
}

// Worker drains a job channel one job at a time.
type Worker struct {
	Handler    JobHandler
	JobChan    <-chan model.ActionJob
	MaxRetries int
	Backoff    time.Duration
	Logger     *logrus.Logger
	Sleep      func(ctx context.Context, d time.Duration) error
}

// Constructor
func NewWorker(handler JobHandler, jobChan <-chan model.ActionJob, maxRetries int, logger *logrus.Logger) *Worker {
	return &Worker{
		Handler:    handler,
		JobChan:    jobChan,
		MaxRetries: maxRetries,
		Backoff:    500 * time.Millisecond,
		Logger:     logger,
		Sleep:      Sleeper,
	}
}

// Start blocks until the channel is closed or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.JobChan:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job model.ActionJob) {
	for attempt := 0; ; attempt++ {
		err := w.Handler.Handle(ctx, job)
		if err == nil {
			return
		}

		log := w.Logger.WithError(err).WithFields(logrus.Fields{
			"job_id":  job.ID,
			"action":  job.Action,
			"attempt": attempt + 1,
		})
		if !appErrors.IsRetryable(err) || attempt >= w.MaxRetries {
			log.Error("job permanently failed")
			return
		}
		log.Warn("job failed, retrying")

		if err := w.Sleep(ctx, time.Duration(attempt+1)*w.Backoff); err != nil {
			return
		}
	}
}
