package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/diary"
	"github.com/i474232898/weather-diary/internal/store/migrations"
	"github.com/i474232898/weather-diary/internal/weather"
)

// SQLiteStore implements the diary store and the weather cache on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations. Pass ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// OpenConnection opens and configures a SQLite connection without touching the schema.
func OpenConnection(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: requests serialize at the store, and ":memory:"
	// databases stay a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting journal mode: %w", err)
		}
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Weather cache

func (s *SQLiteStore) GetWeather(ctx context.Context, date common.Date) (weather.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT date, weather, icon, temperature FROM date_weather WHERE date = ?",
		date.String(),
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.Snapshot{}, ErrNotFound
		}
		return weather.Snapshot{}, fmt.Errorf("get weather: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) UpsertWeather(ctx context.Context, snapshot weather.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO date_weather (date, weather, icon, temperature)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			weather = excluded.weather,
			icon = excluded.icon,
			temperature = excluded.temperature`,
		snapshot.Date.String(), string(snapshot.Condition), snapshot.Icon, snapshot.Temperature,
	)
	if err != nil {
		return fmt.Errorf("upsert weather: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestWeather(ctx context.Context) (weather.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT date, weather, icon, temperature FROM date_weather ORDER BY date DESC LIMIT 1",
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.Snapshot{}, ErrNotFound
		}
		return weather.Snapshot{}, fmt.Errorf("latest weather: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row *sql.Row) (weather.Snapshot, error) {
	var (
		snap    weather.Snapshot
		dateStr string
		cond    string
	)
	if err := row.Scan(&dateStr, &cond, &snap.Icon, &snap.Temperature); err != nil {
		return weather.Snapshot{}, err
	}
	date, err := common.ParseDate(dateStr)
	if err != nil {
		return weather.Snapshot{}, err
	}
	snap.Date = date
	snap.Condition = weather.Condition(cond)
	return snap, nil
}

// Diaries

const diaryColumns = "id, date, text, weather, icon, temperature, created_at"

func (s *SQLiteStore) InsertDiary(ctx context.Context, e diary.Entry) (string, error) {
	id := uuid.New().String()
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO diary ("+diaryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, e.Date.String(), e.Text, string(e.Weather), e.Icon, e.Temperature,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert diary: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) FindDiariesByDate(ctx context.Context, date common.Date) ([]diary.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+diaryColumns+" FROM diary WHERE date = ? ORDER BY seq",
		date.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find diaries by date: %w", err)
	}
	return scanEntries(rows)
}

func (s *SQLiteStore) FindDiariesBetween(ctx context.Context, start, end common.Date) ([]diary.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+diaryColumns+" FROM diary WHERE date BETWEEN ? AND ? ORDER BY date, seq",
		start.String(), end.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find diaries between: %w", err)
	}
	return scanEntries(rows)
}

func (s *SQLiteStore) UpdateDiaryText(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE diary SET text = ? WHERE id = ?", text, id)
	if err != nil {
		return fmt.Errorf("update diary text: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update diary text: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteDiariesByDate(ctx context.Context, date common.Date) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM diary WHERE date = ?", date.String())
	if err != nil {
		return 0, fmt.Errorf("delete diaries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete diaries: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]diary.Entry, error) {
	defer rows.Close()

	var entries []diary.Entry
	for rows.Next() {
		var (
			e         diary.Entry
			dateStr   string
			cond      string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &dateStr, &e.Text, &cond, &e.Icon, &e.Temperature, &createdAt); err != nil {
			return nil, fmt.Errorf("scan diary: %w", err)
		}

		date, err := common.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("scan diary %s: %w", e.ID, err)
		}
		e.Date = date
		e.Weather = weather.Condition(cond)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diaries: %w", err)
	}
	return entries, nil
}
