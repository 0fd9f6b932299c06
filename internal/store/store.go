package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for extracted bridge declarations
// and the fragments generated from them.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Extraction tables

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT,
  line_count      INTEGER DEFAULT 0,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bridges (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  module          TEXT NOT NULL,
  namespace       TEXT DEFAULT '',
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS qobjects (
  id              INTEGER PRIMARY KEY,
  bridge_id       INTEGER NOT NULL REFERENCES bridges(id),
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  rust_struct     TEXT NOT NULL,
  line            INTEGER,
  generated_hash  TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS properties (
  id              INTEGER PRIMARY KEY,
  qobject_id      INTEGER NOT NULL REFERENCES qobjects(id),
  name            TEXT NOT NULL,
  type_expr       TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS qsignals (
  id              INTEGER PRIMARY KEY,
  qobject_id      INTEGER NOT NULL REFERENCES qobjects(id),
  name            TEXT NOT NULL,
  cxx_name        TEXT DEFAULT '',
  params          TEXT DEFAULT '[]',
  ordinal         INTEGER NOT NULL,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS passthrough_items (
  id              INTEGER PRIMARY KEY,
  bridge_id       INTEGER NOT NULL REFERENCES bridges(id),
  ordinal         INTEGER NOT NULL,
  source          TEXT NOT NULL
);

-- Generation tables

CREATE TABLE IF NOT EXISTS signals (
  id              INTEGER PRIMARY KEY,
  qobject_id      INTEGER NOT NULL REFERENCES qobjects(id),
  property_id     INTEGER REFERENCES properties(id),
  rust_name       TEXT NOT NULL,
  cpp_name        TEXT NOT NULL,
  origin          TEXT NOT NULL,
  declaration     TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fragments (
  id              INTEGER PRIMARY KEY,
  qobject_id      INTEGER NOT NULL REFERENCES qobjects(id),
  property_id     INTEGER REFERENCES properties(id),
  section         TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  source          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_bridges_file ON bridges(file_id);
CREATE INDEX IF NOT EXISTS idx_qobjects_bridge ON qobjects(bridge_id);
CREATE INDEX IF NOT EXISTS idx_qobjects_file ON qobjects(file_id);
CREATE INDEX IF NOT EXISTS idx_qobjects_name ON qobjects(name);
CREATE INDEX IF NOT EXISTS idx_properties_qobject ON properties(qobject_id);
CREATE INDEX IF NOT EXISTS idx_qsignals_qobject ON qsignals(qobject_id);
CREATE INDEX IF NOT EXISTS idx_passthrough_bridge ON passthrough_items(bridge_id);
CREATE INDEX IF NOT EXISTS idx_signals_qobject ON signals(qobject_id);
CREATE INDEX IF NOT EXISTS idx_fragments_qobject ON fragments(qobject_id);
`

// DeleteFileData transactionally removes all data for a file, generated
// output included. Deletes in reverse-dependency order to respect FK
// constraints. The files row itself is kept.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	objects := "SELECT id FROM qobjects WHERE file_id = ?"
	bridges := "SELECT id FROM bridges WHERE file_id = ?"
	for _, q := range []string{
		"DELETE FROM fragments WHERE qobject_id IN (" + objects + ")",
		"DELETE FROM signals WHERE qobject_id IN (" + objects + ")",
		"DELETE FROM properties WHERE qobject_id IN (" + objects + ")",
		"DELETE FROM qsignals WHERE qobject_id IN (" + objects + ")",
		"DELETE FROM qobjects WHERE file_id = ?",
		"DELETE FROM passthrough_items WHERE bridge_id IN (" + bridges + ")",
		"DELETE FROM bridges WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and everything extracted or generated from it.
func (s *Store) DeleteFile(fileID int64) error {
	if err := s.DeleteFileData(fileID); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" when unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
