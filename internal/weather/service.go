package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/weather-diary/internal/common"
)

var (
	// ErrNoProviders is returned when a fetch is attempted without any configured provider.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoReadings is returned when every provider failed.
	ErrNoReadings = errors.New("no successful provider readings")
	// ErrNotToday is returned when asked to refresh a day other than today.
	// Providers only report current conditions.
	ErrNotToday = errors.New("weather can only be refreshed for today")
)

// Service orchestrates fetching from providers and persisting snapshots.
type Service struct {
	store     Store
	providers []Provider
	location  Location
	zone      *time.Location
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithZone sets the time zone that decides which day is today. Default UTC.
func WithZone(zone *time.Location) Option {
	return func(s *Service) {
		if zone != nil {
			s.zone = zone
		}
	}
}

// NewService creates a new Service observing loc.
func NewService(store Store, providers []Provider, loc Location, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     store,
		providers: providers,
		location:  loc,
		zone:      time.UTC,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch queries all providers concurrently and aggregates the successful
// readings into a snapshot dated date. Nothing is stored.
func (s *Service) Fetch(ctx context.Context, date common.Date) (Snapshot, error) {
	if len(s.providers) == 0 {
		return Snapshot{}, ErrNoProviders
	}

	var wg sync.WaitGroup
	results := make([]*Reading, len(s.providers))
	for i, p := range s.providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, s.location)
			if err != nil {
				// Partial success is fine.
				s.logger.Warn("weather: provider fetch failed",
					"provider", p.Name(), "location", s.location.Key(), "err", err)
				return
			}

			results[i] = &r
		}()
	}
	wg.Wait()

	// Keep provider order so aggregation ties are deterministic.
	readings := make([]Reading, 0, len(results))
	for _, r := range results {
		if r != nil {
			readings = append(readings, *r)
		}
	}

	if len(readings) == 0 {
		return Snapshot{}, fmt.Errorf("%s: %w", s.location.Key(), ErrNoReadings)
	}

	s.logger.Debug("weather: fetched readings", "location", s.location.Key(), "count", len(readings))
	return AggregateReadings(date, readings), nil
}

// RefreshDay fetches today's weather and upserts it under date, which must be
// today in the service zone. When every provider fails, the most recent stored
// snapshot is re-dated and stored instead so the day still has weather; if
// nothing was ever stored the fetch error is returned.
func (s *Service) RefreshDay(ctx context.Context, date common.Date) (Snapshot, error) {
	if today := common.Today(s.zone); !date.Equal(today) {
		return Snapshot{}, fmt.Errorf("refresh %s: %w (today is %s)", date, ErrNotToday, today)
	}

	snapshot, fetchErr := s.Fetch(ctx, date)
	if fetchErr != nil {
		latest, err := s.store.LatestWeather(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("refresh %s: %w", date, fetchErr)
		}
		s.logger.Warn("weather: falling back to last stored snapshot",
			"date", date.String(), "from", latest.Date.String(), "err", fetchErr)
		snapshot = latest
		snapshot.Date = date
	}

	if err := s.store.UpsertWeather(ctx, snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("refresh %s: %w", date, err)
	}

	s.logger.Info("weather: stored snapshot",
		"date", date.String(), "condition", snapshot.Condition, "temperature", snapshot.Temperature)
	return snapshot, nil
}

// Lookup delegates to the underlying store.
func (s *Service) Lookup(ctx context.Context, date common.Date) (Snapshot, error) {
	return s.store.GetWeather(ctx, date)
}
