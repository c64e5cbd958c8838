package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/weather-diary/internal/api/http"
	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/config"
	"github.com/i474232898/weather-diary/internal/diary"
	"github.com/i474232898/weather-diary/internal/scheduler"
	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/store/migrations"
	"github.com/i474232898/weather-diary/internal/weather"
	"github.com/i474232898/weather-diary/internal/weather/providers"
)

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, nil
}

// buildProviders returns every provider the config has credentials or
// coordinates for.
func buildProviders(cfg *config.AppConfig) []weather.Provider {
	// Shared HTTP client for outbound provider calls.
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	var provs []weather.Provider
	if cfg.Weather.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(client, cfg.Weather.OpenWeatherAPIKey))
	}
	if cfg.Weather.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(client, cfg.Weather.WeatherAPIKey))
	}
	// Open-Meteo needs no key but only takes coordinates.
	if cfg.Weather.Lat != nil && cfg.Weather.Lon != nil {
		provs = append(provs, providers.NewOpenMeteoProvider(client))
	}

	if len(provs) == 0 {
		slog.Warn("no weather providers configured; new entries fail unless the day is cached")
	}
	return provs
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer backend.Close()

	weatherSvc := weather.NewService(backend, buildProviders(cfg), cfg.Weather.Place(), slog.Default(),
		weather.WithZone(cfg.Location))
	diarySvc := diary.NewService(backend, backend,
		diary.WithFetcher(weatherSvc),
		diary.WithLocation(cfg.Location),
		diary.WithLogger(slog.Default()),
	)

	sched := scheduler.New(weatherSvc, cfg.Weather.RefreshAt, cfg.Location, cfg.Weather.RefreshOnStart, slog.Default())
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(diarySvc, os.Stderr)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "port", cfg.Port, "driver", cfg.Database.Driver)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "err", err)
	}
	return nil
}

// runRefresh stores today's weather. Providers only report current
// conditions, so there is no way to refresh another day.
func runRefresh(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer backend.Close()

	svc := weather.NewService(backend, buildProviders(cfg), cfg.Weather.Place(), slog.Default(),
		weather.WithZone(cfg.Location))
	snap, err := svc.RefreshDay(ctx, common.Today(cfg.Location))
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s  %.1f°C  %s\n", snap.Date, snap.Condition, snap.Temperature, snap.Icon)
	return nil
}

func migrateUp(path string) error {
	db, err := store.OpenConnection(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return err
	}
	fmt.Println("database is up to date")
	return nil
}

func checkStatus(path string) error {
	db, err := store.OpenConnection(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Status(db); err != nil {
		if errors.Is(err, migrations.ErrNoVersion) {
			fmt.Println("database has not been migrated; run `weather-diary migrate`")
		}
		return err
	}
	fmt.Println("database schema is current")
	return nil
}
