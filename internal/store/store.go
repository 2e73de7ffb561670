// Package store provides SQLite-backed persistence for users, uploads,
// md files, tracked topics, and snapshot index records.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL UNIQUE,
	api_key    TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS backups (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	code        TEXT NOT NULL UNIQUE,
	file_path   TEXT NOT NULL,
	file_size   INTEGER NOT NULL DEFAULT 0,
	uploaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS md_files (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	code           TEXT NOT NULL UNIQUE,
	content        TEXT NOT NULL,
	content_size   INTEGER NOT NULL DEFAULT 0,
	filename       TEXT NOT NULL,
	purpose        TEXT NOT NULL DEFAULT '',
	install_path   TEXT NOT NULL DEFAULT '',
	download_count INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS topics (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id               TEXT NOT NULL,
	name                  TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	keywords              TEXT NOT NULL DEFAULT '[]',
	status                TEXT NOT NULL DEFAULT 'active',
	run_status            TEXT NOT NULL DEFAULT 'pending',
	is_public             INTEGER NOT NULL DEFAULT 1,
	search_interval_hours INTEGER NOT NULL DEFAULT 24,
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL,
	last_searched_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_topics_user ON topics(user_id);
CREATE INDEX IF NOT EXISTS idx_topics_public ON topics(is_public, status, updated_at);

CREATE TABLE IF NOT EXISTS topic_snapshots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id      INTEGER NOT NULL,
	snapshot_path TEXT NOT NULL,
	node_count    INTEGER NOT NULL DEFAULT 0,
	edge_count    INTEGER NOT NULL DEFAULT 0,
	sources_count INTEGER NOT NULL DEFAULT 0,
	summary       TEXT NOT NULL DEFAULT '',
	md_code       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_topic_snapshots_topic ON topic_snapshots(topic_id, created_at);
`

// DB wraps a sql.DB with repository operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
