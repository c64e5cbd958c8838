package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

var (
	// ErrNotFound is returned when no entry exists for the requested date.
	ErrNotFound = errors.New("diary not found")
	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("start date is after end date")
	// ErrWeatherUnavailable is returned when no weather could be resolved for a new entry.
	ErrWeatherUnavailable = errors.New("weather unavailable")
)

// Service implements the diary operations on top of the stores.
type Service struct {
	diaries  Store
	snaps    WeatherStore
	fetcher  WeatherFetcher
	location *time.Location
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher enables live weather lookups for dates missing from the cache.
func WithFetcher(f WeatherFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(diaries Store, snaps WeatherStore, opts ...Option) *Service {
	s := &Service{
		diaries:  diaries,
		snaps:    snaps,
		location: time.UTC,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new entry for date. The day's weather comes from the cache;
// on a miss it is fetched live, and cached too when date is today. If neither
// works the entry is not created and ErrWeatherUnavailable is returned.
func (s *Service) Create(ctx context.Context, date common.Date, text string) (Entry, error) {
	snap, err := s.snaps.GetWeather(ctx, date)
	switch {
	case errors.Is(err, common.ErrNotFound):
		snap, err = s.fetchWeather(ctx, date)
		if err != nil {
			return Entry{}, err
		}
	case err != nil:
		return Entry{}, fmt.Errorf("create diary %s: weather cache: %w", date, err)
	}

	entry := NewEntry(date, text, snap)
	id, err := s.diaries.InsertDiary(ctx, entry)
	if err != nil {
		return Entry{}, fmt.Errorf("create diary %s: %w", date, err)
	}
	entry.ID = id

	s.logger.Debug("diary: created", "id", id, "date", date.String())
	return entry, nil
}

func (s *Service) fetchWeather(ctx context.Context, date common.Date) (snap weather.Snapshot, err error) {
	if s.fetcher == nil {
		return snap, fmt.Errorf("%w for %s: no cached snapshot", ErrWeatherUnavailable, date)
	}

	snap, err = s.fetcher.Fetch(ctx, date)
	if err != nil {
		s.logger.Warn("diary: live weather fetch failed", "date", date.String(), "err", err)
		return snap, fmt.Errorf("%w for %s: %v", ErrWeatherUnavailable, date, err)
	}

	if date.Equal(common.Today(s.location)) {
		if err := s.snaps.UpsertWeather(ctx, snap); err != nil {
			s.logger.Warn("diary: caching live weather failed", "date", date.String(), "err", err)
		}
	}
	return snap, nil
}

// Read returns every entry for date in insertion order.
func (s *Service) Read(ctx context.Context, date common.Date) ([]Entry, error) {
	entries, err := s.diaries.FindDiariesByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("read diary %s: %w", date, err)
	}
	return nonNil(entries), nil
}

// ReadRange returns every entry dated within [start, end].
func (s *Service) ReadRange(ctx context.Context, start, end common.Date) ([]Entry, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	entries, err := s.diaries.FindDiariesBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read diaries %s..%s: %w", start, end, err)
	}
	return nonNil(entries), nil
}

// Update replaces the text of the first entry written for date.
func (s *Service) Update(ctx context.Context, date common.Date, text string) error {
	entries, err := s.diaries.FindDiariesByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("update diary %s: %w", date, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w for %s", ErrNotFound, date)
	}

	if err := s.diaries.UpdateDiaryText(ctx, entries[0].ID, text); err != nil {
		// Deleted since the lookup.
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w for %s", ErrNotFound, date)
		}
		return fmt.Errorf("update diary %s: %w", date, err)
	}
	return nil
}

// Delete removes all entries for date and reports how many there were.
// Deleting a date without entries succeeds.
func (s *Service) Delete(ctx context.Context, date common.Date) (int64, error) {
	n, err := s.diaries.DeleteDiariesByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("delete diary %s: %w", date, err)
	}
	return n, nil
}

func nonNil(entries []Entry) []Entry {
	if entries == nil {
		return []Entry{}
	}
	return entries
}
