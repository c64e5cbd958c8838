package store

import (
	"fmt"

	"github.com/i474232898/weather-diary/internal/diary"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Backend is a store serving both diaries and the weather cache.
type Backend interface {
	diary.Store
	weather.Store
	Close() error
}

// Open creates the Backend selected by driver ("sqlite" or "memory").
func Open(driver, path string) (Backend, error) {
	switch driver {
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("database path required for sqlite driver")
		}
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}
}
