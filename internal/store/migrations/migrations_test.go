package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUpCreatesTables(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"date_weather", "diary", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestStatusFreshDatabase(t *testing.T) {
	db := openTestDB(t)
	if err := Status(db); !errors.Is(err, ErrNoVersion) {
		t.Fatalf("Status() = %v, want ErrNoVersion", err)
	}
}

func TestMigrateUpIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp() failed: %v", err)
	}
	if err := Status(db); err != nil {
		t.Errorf("Status() after migration = %v", err)
	}
}

func TestDateWeatherIsUniquePerDate(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	insert := "INSERT INTO date_weather (date, weather, icon, temperature) VALUES ('2023-10-20', 'clear', '01d', 20)"
	if _, err := db.Exec(insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec(insert); err == nil {
		t.Error("second insert for the same date succeeded, want primary key violation")
	}
}
