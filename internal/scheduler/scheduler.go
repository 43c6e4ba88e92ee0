package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// sweepTimeout bounds one cron-triggered sweep.
const sweepTimeout = 5 * time.Minute

type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *logrus.Logger
}

// NewScheduler registers the sweep on spec, e.g. "@hourly".
func NewScheduler(spec string, sweeper *Sweeper, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		sweeper: sweeper,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("sweep scheduler started")
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweep scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			s.logger.Warn("previous sweep still running, tick skipped")
			return
		}
		s.logger.WithError(err).Error("sweep failed")
	}
}
