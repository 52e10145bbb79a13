package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"FinEvent/internal/domain/models"
	"FinEvent/pkg/logger"
	"FinEvent/pkg/queue"
)

// RefreshScheduler enqueues one refresh job per instrument on a cron
// schedule.
type RefreshScheduler struct {
	cron        *cron.Cron
	queue       queue.Publisher
	instruments []Instrument
	interval    models.Interval
	log         *logger.Logger
	entry       cron.EntryID
}

func NewRefreshScheduler(q queue.Publisher, instruments []Instrument, interval models.Interval, loc *time.Location, log *logger.Logger) *RefreshScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RefreshScheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		queue:       q,
		instruments: instruments,
		interval:    interval,
		log:         log.With(logger.String("component", "refresh_scheduler")),
	}
}

// Start registers the schedule, a standard five-field cron expression or a
// descriptor such as "@every 1h", and starts the cron runner.
func (s *RefreshScheduler) Start(schedule string) error {
	id, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := s.EnqueueAll(ctx); err != nil {
			s.log.Error("enqueue refresh jobs", logger.Int("enqueued", n), logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("refresh schedule %q: %w", schedule, err)
	}
	s.entry = id
	s.cron.Start()
	s.log.Info("refresh scheduler started",
		logger.String("schedule", schedule),
		logger.Int("instruments", len(s.instruments)))
	return nil
}

// Next returns the next scheduled run, zero before Start.
func (s *RefreshScheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// EnqueueAll enqueues a refresh for every instrument and returns how many
// were enqueued before the first failure.
func (s *RefreshScheduler) EnqueueAll(ctx context.Context) (int, error) {
	for i, inst := range s.instruments {
		if _, err := s.queue.Enqueue(ctx, JobRefreshBars, RefreshRequest{Instrument: inst, Interval: s.interval}); err != nil {
			return i, fmt.Errorf("enqueue %s: %w", inst.Code, err)
		}
	}
	return len(s.instruments), nil
}

// Stop waits for a running enqueue to finish.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
