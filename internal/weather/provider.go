package weather

import (
	"context"

	"github.com/i474232898/weather-diary/internal/common"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Reading, error)
}

// Store is the weather cache: one snapshot per date.
type Store interface {
	GetWeather(ctx context.Context, date common.Date) (Snapshot, error)
	UpsertWeather(ctx context.Context, snapshot Snapshot) error
	LatestWeather(ctx context.Context) (Snapshot, error)
}
