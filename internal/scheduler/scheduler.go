package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

const jobTimeout = 30 * time.Second

// Refresher stores the weather of one day.
type Refresher interface {
	RefreshDay(ctx context.Context, date common.Date) (weather.Snapshot, error)
}

// Scheduler refreshes the weather cache once a day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	at        string
	loc       *time.Location
	onStart   bool
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// New creates a Scheduler running at the wall-clock time at (HH:MM) in loc.
// With onStart set, today's weather is also refreshed right after Start.
func New(refresher Refresher, at string, loc *time.Location, onStart bool, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		refresher: refresher,
		at:        at,
		loc:       loc,
		onStart:   onStart,
		logger:    logger,
	}
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.at).SingletonMode().Do(s.run)
	if err != nil {
		return fmt.Errorf("scheduler: schedule daily refresh at %s: %w", s.at, err)
	}

	if s.onStart && s.track() {
		go func() {
			defer s.running.Done()
			s.refresh()
		}()
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: daily weather refresh scheduled", "at", s.at, "tz", s.loc.String())
	return nil
}

// RunNow refreshes today's weather synchronously.
func (s *Scheduler) RunNow(ctx context.Context) error {
	date := common.Today(s.loc)
	_, err := s.refresher.RefreshDay(ctx, date)
	return err
}

// track registers a run with Stop, or reports false once stopped.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.running.Add(1)
	return true
}

func (s *Scheduler) run() {
	if !s.track() {
		return
	}
	defer s.running.Done()
	s.refresh()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.logger.Info("scheduler: running weather refresh job")
	if err := s.RunNow(ctx); err != nil {
		s.logger.Error("scheduler: weather refresh failed", "err", err)
		return
	}
	s.logger.Info("scheduler: completed weather refresh job")
}

// Stop cancels future jobs and waits for a refresh in flight, so the store
// can be closed once it returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.running.Wait()
}
