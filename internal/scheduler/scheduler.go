package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Scheduler runs periodic maintenance jobs in UTC.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log,
	}
}

// Every registers job to run at the given interval. A run that is still
// going when the next one is due is not started twice.
func (s *Scheduler) Every(name string, interval time.Duration, job func()) error {
	_, err := s.scheduler.Every(interval).Tag(name).SingletonMode().Do(func() {
		start := time.Now()
		job()
		s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running all scheduled jobs without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// SweepCache returns a job that drops expired entries through sweep.
func SweepCache(log *zap.Logger, sweep func() int) func() {
	return func() {
		if n := sweep(); n > 0 {
			log.Info("expired cache entries removed", zap.Int("count", n))
		}
	}
}
