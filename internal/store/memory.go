package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/diary"
	"github.com/i474232898/weather-diary/internal/weather"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = common.ErrNotFound

// MemoryStore is a concurrency-safe in-memory implementation of both the
// diary store and the weather cache.
type MemoryStore struct {
	mu sync.RWMutex

	// key: YYYY-MM-DD
	weather map[string]weather.Snapshot

	// insertion order
	diaries []diary.Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		weather: make(map[string]weather.Snapshot),
	}
}

// GetWeather returns the snapshot stored for date.
func (s *MemoryStore) GetWeather(_ context.Context, date common.Date) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.weather[date.String()]
	if !ok {
		return weather.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// UpsertWeather stores snapshot, replacing any snapshot for the same date.
func (s *MemoryStore) UpsertWeather(_ context.Context, snapshot weather.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weather[snapshot.Date.String()] = snapshot
	return nil
}

// LatestWeather returns the snapshot with the most recent date.
func (s *MemoryStore) LatestWeather(_ context.Context) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest weather.Snapshot
		found  bool
	)
	for _, snap := range s.weather {
		if !found || snap.Date.After(latest.Date) {
			latest = snap
			found = true
		}
	}
	if !found {
		return weather.Snapshot{}, ErrNotFound
	}
	return latest, nil
}

// InsertDiary appends e under a new id.
func (s *MemoryStore) InsertDiary(_ context.Context, e diary.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New().String()
	s.diaries = append(s.diaries, e)
	return e.ID, nil
}

// FindDiariesByDate returns entries for date in insertion order.
func (s *MemoryStore) FindDiariesByDate(_ context.Context, date common.Date) ([]diary.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []diary.Entry
	for _, e := range s.diaries {
		if e.Date.Equal(date) {
			result = append(result, e)
		}
	}
	return result, nil
}

// FindDiariesBetween returns entries dated within [start, end], ordered by
// date then insertion.
func (s *MemoryStore) FindDiariesBetween(_ context.Context, start, end common.Date) ([]diary.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []diary.Entry
	for _, e := range s.diaries {
		if !e.Date.Before(start) && !e.Date.After(end) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// UpdateDiaryText overwrites the text of entry id.
func (s *MemoryStore) UpdateDiaryText(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.diaries {
		if s.diaries[i].ID == id {
			s.diaries[i].Text = text
			return nil
		}
	}
	return ErrNotFound
}

// DeleteDiariesByDate removes every entry for date.
func (s *MemoryStore) DeleteDiariesByDate(_ context.Context, date common.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.diaries[:0]
	var removed int64
	for _, e := range s.diaries {
		if e.Date.Equal(date) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.diaries = kept
	return removed, nil
}

// Close is a no-op; it lets MemoryStore stand in for SQLiteStore.
func (s *MemoryStore) Close() error {
	return nil
}
