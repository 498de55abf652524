package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	path string
	conn *sql.DB
}

func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

func (s *SQLite) InitDB() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.path)
	if err != nil {
		return err
	}

	// The kv table backs the on-device cache adapter; drafts and snapshots
	// back the remote draft and publish pipeline. A device-cache database
	// only ever touches kv, but sharing one schema keeps bootstrap simple.
	res, err := s.conn.Exec(`
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS kv (
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (namespace, key)
);

CREATE TABLE IF NOT EXISTS drafts (
    project_id TEXT NOT NULL,
    content_key TEXT NOT NULL,
    kind TEXT NOT NULL,
    content_html TEXT,
    content_json TEXT,
    page_path TEXT,
    section_name TEXT,
    last_edited_by TEXT,
    updated_at DATETIME,
    PRIMARY KEY (project_id, content_key)
);

CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    data BLOB,
    content_hash TEXT,
    published_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_snapshots_project ON snapshots (project_id, published_at);`)

	dbLogger.Info().Any("db_result", res).Str("path", s.path).Msg("Database initialized")
	return err
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(query string, args ...interface{}) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.Query(query, args...)
}

func (s *SQLite) Exec(query string, args ...interface{}) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.Exec(query, args...)
}
