package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-diary/internal/weather"
)

type AppConfig struct {
	Port     string         `toml:"port"`
	LogLevel string         `toml:"log_level"`
	Timezone string         `toml:"timezone"`
	Timeout  string         `toml:"http_timeout"` // outbound provider calls
	Database DatabaseConfig `toml:"database"`
	Weather  WeatherConfig  `toml:"weather"`

	// Derived by Load.
	HTTPTimeout time.Duration  `toml:"-"`
	Location    *time.Location `toml:"-"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "memory"
	Path   string `toml:"path"`   // only used for driver=sqlite
}

// WeatherConfig holds provider credentials, the observed place and the refresh schedule.
type WeatherConfig struct {
	OpenWeatherAPIKey string   `toml:"openweather_api_key"`
	WeatherAPIKey     string   `toml:"weatherapi_api_key"`
	City              string   `toml:"city"`
	Country           string   `toml:"country"`
	Lat               *float64 `toml:"lat,omitempty"`
	Lon               *float64 `toml:"lon,omitempty"`

	// RefreshAt is the daily refresh time, HH:MM in the configured timezone.
	RefreshAt      string `toml:"refresh_at"`
	RefreshOnStart bool   `toml:"refresh_on_start"`
}

// Place returns the location weather is fetched for.
func (w WeatherConfig) Place() weather.Location {
	return weather.Location{
		City:    w.City,
		Country: w.Country,
		Lat:     w.Lat,
		Lon:     w.Lon,
	}
}

func defaults() AppConfig {
	return AppConfig{
		Port:     "8080",
		LogLevel: "info",
		Timezone: "UTC",
		Timeout:  "10s",
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/weather-diary.db",
		},
		Weather: WeatherConfig{
			City:      "Seoul",
			Country:   "KR",
			RefreshAt: "01:00",
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in increasing order of precedence. A .env file in the working
// directory is loaded into the environment first. An empty path falls back
// to CONFIG_FILE; no file at all is fine.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config: could not load .env", "err", err)
	}

	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Timezone, "TIMEZONE")
	setString(&cfg.Timeout, "HTTP_TIMEOUT")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.Path, "DATABASE_PATH")
	setString(&cfg.Weather.OpenWeatherAPIKey, "OPENWEATHER_API_KEY")
	setString(&cfg.Weather.WeatherAPIKey, "WEATHERAPI_API_KEY")
	setString(&cfg.Weather.City, "WEATHER_LOCATION_CITY")
	setString(&cfg.Weather.Country, "WEATHER_LOCATION_COUNTRY")
	setString(&cfg.Weather.RefreshAt, "WEATHER_REFRESH_AT")

	if v := os.Getenv("WEATHER_REFRESH_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid WEATHER_REFRESH_ON_START: %w", err)
		}
		cfg.Weather.RefreshOnStart = b
	}

	for key, dst := range map[string]**float64{
		"WEATHER_LOCATION_LAT": &cfg.Weather.Lat,
		"WEATHER_LOCATION_LON": &cfg.Weather.Lon,
	} {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = &f
		}
	}
	return nil
}

// finish validates the merged values and fills the derived fields.
func (c *AppConfig) finish() error {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	c.HTTPTimeout = timeout

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	c.Location = loc

	switch c.Database.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: use sqlite or memory", c.Database.Driver)
	}

	if _, err := time.Parse("15:04", c.Weather.RefreshAt); err != nil {
		return fmt.Errorf("invalid WEATHER_REFRESH_AT %q: use HH:MM", c.Weather.RefreshAt)
	}

	if (c.Weather.Lat == nil) != (c.Weather.Lon == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}
	if strings.TrimSpace(c.Weather.City) == "" && c.Weather.Lat == nil {
		return fmt.Errorf("a weather location city or coordinates are required")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
