package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps sql.DB together with the driver it was opened with.
type DB struct {
	Client *sql.DB
	Driver string
}

// NewDB opens a connection pool, pings it and creates the schema.
func NewDB(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if path := sqlitePath(dsn); path != "" {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create db dir: %w", err)
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite serialises writers; one connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	d := &DB{Client: db, Driver: driver}
	if err := d.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Migrate creates the service tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if d.Driver == DriverSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Healthy pings the pool.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rsvps (
	id          BIGSERIAL PRIMARY KEY,
	first_name  TEXT,
	last_name   TEXT,
	email       TEXT,
	phone       TEXT,
	"table"     INTEGER,
	seat        INTEGER,
	attending   BOOLEAN,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rsvps_email ON rsvps (email);
CREATE INDEX IF NOT EXISTS idx_rsvps_seating ON rsvps ("table", seat);

CREATE TABLE IF NOT EXISTS dietary_restrictions (
	id               BIGSERIAL PRIMARY KEY,
	rsvp_id          BIGINT NOT NULL UNIQUE REFERENCES rsvps(id),
	restrictions     TEXT NOT NULL DEFAULT '[]',
	additional_notes TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS song_requests (
	id           BIGSERIAL PRIMARY KEY,
	song_title   TEXT NOT NULL,
	artist_name  TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS login_attempts (
	id             BIGSERIAL PRIMARY KEY,
	attempt_id     TEXT NOT NULL,
	first_name     TEXT,
	last_name      TEXT,
	email          TEXT,
	success        BOOLEAN NOT NULL,
	fields_matched INTEGER NOT NULL DEFAULT 0,
	best_match     INTEGER NOT NULL DEFAULT 0,
	attempted_at   TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rsvps (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name  TEXT,
	last_name   TEXT,
	email       TEXT,
	phone       TEXT,
	"table"     INTEGER,
	seat        INTEGER,
	attending   BOOLEAN,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_rsvps_email ON rsvps (email);
CREATE INDEX IF NOT EXISTS idx_rsvps_seating ON rsvps ("table", seat);

CREATE TABLE IF NOT EXISTS dietary_restrictions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	rsvp_id          INTEGER NOT NULL UNIQUE REFERENCES rsvps(id),
	restrictions     TEXT NOT NULL DEFAULT '[]',
	additional_notes TEXT,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS song_requests (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	song_title   TEXT NOT NULL,
	artist_name  TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS login_attempts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id     TEXT NOT NULL,
	first_name     TEXT,
	last_name      TEXT,
	email          TEXT,
	success        BOOLEAN NOT NULL,
	fields_matched INTEGER NOT NULL DEFAULT 0,
	best_match     INTEGER NOT NULL DEFAULT 0,
	attempted_at   DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)
`
