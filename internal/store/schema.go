// Package store persists journal entries, task items, media attachments,
// tags and projects in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	title             TEXT NOT NULL DEFAULT '',
	content           TEXT NOT NULL DEFAULT '',
	manual_mood_label TEXT,
	project_id        TEXT,
	is_draft          BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_user ON journal_entries(user_id, updated_at);

CREATE TABLE IF NOT EXISTS todo_items (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	entry_id         TEXT NOT NULL,
	task_description TEXT NOT NULL DEFAULT '',
	is_completed     BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at     TIMESTAMP,
	priority         INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_todo_items_entry ON todo_items(entry_id);

CREATE TABLE IF NOT EXISTS media_attachments (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	entry_id           TEXT NOT NULL,
	file_path          TEXT NOT NULL DEFAULT '',
	file_url_cached    TEXT NOT NULL DEFAULT '',
	file_name_original TEXT NOT NULL DEFAULT '',
	file_type          TEXT NOT NULL DEFAULT '',
	mime_type          TEXT NOT NULL DEFAULT '',
	file_size_bytes    BIGINT NOT NULL DEFAULT -1,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_media_attachments_entry ON media_attachments(entry_id);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS entry_tags (
	entry_id TEXT NOT NULL,
	tag_id   TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	PRIMARY KEY (entry_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_entry_tags_tag ON entry_tags(tag_id);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// DB wraps a sql.DB with journal-specific operations.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the database and applies the schema. For SQLite the dsn
// is a file path; for PostgreSQL it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		conn   *sql.DB
		schema = schemaSQL
		err    error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
		}
		conn, err = sql.Open("sqlite3", dsn)
	case DriverPostgres:
		conn, err = sql.Open("pgx", dsn)
		if err == nil {
			conn.SetConnMaxIdleTime(5 * time.Minute)
			conn.SetConnMaxLifetime(30 * time.Minute)
			conn.SetMaxIdleConns(10)
			conn.SetMaxOpenConns(20)
		}
		schema = strings.ReplaceAll(schema, "TIMESTAMP", "TIMESTAMPTZ")
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn, driver: driver}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection; used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func newID() string {
	return ulid.Make().String()
}

func now() time.Time {
	return time.Now().UTC()
}
