package diary

import (
	"context"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Store persists diary entries. Finders return entries ordered by date,
// then insertion order. UpdateDiaryText returns an error matching
// common.ErrNotFound when id does not exist.
type Store interface {
	InsertDiary(ctx context.Context, e Entry) (string, error)
	FindDiariesByDate(ctx context.Context, date common.Date) ([]Entry, error)
	FindDiariesBetween(ctx context.Context, start, end common.Date) ([]Entry, error)
	UpdateDiaryText(ctx context.Context, id, text string) error
	DeleteDiariesByDate(ctx context.Context, date common.Date) (int64, error)
}

// WeatherStore is the weather cache the service needs. GetWeather returns an
// error matching common.ErrNotFound when date has no snapshot.
type WeatherStore interface {
	GetWeather(ctx context.Context, date common.Date) (weather.Snapshot, error)
	UpsertWeather(ctx context.Context, snapshot weather.Snapshot) error
}

// WeatherFetcher fetches live conditions when the cache has no row for a date.
type WeatherFetcher interface {
	Fetch(ctx context.Context, date common.Date) (weather.Snapshot, error)
}
