// Package logstore persists decoded log records into a local SQLite
// database so extracted bundles can be queried instead of grepped.
package logstore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that match no records.
var ErrNotFound = errors.New("logstore: not found")

// Record is one decoded log entry ready for indexing.
type Record struct {
	ID        int64
	Source    string // originating .glog/.glogmmap file
	Type      int32
	Timestamp int64 // unix milliseconds
	Level     string
	PID       int32
	TID       string
	Tag       string
	Msg       string
}

// Store indexes decoded log records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// WAL mode keeps inserts cheap while the CLI reads back counts.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %v", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		log_type INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		level TEXT NOT NULL,
		pid INTEGER NOT NULL,
		tid TEXT,
		tag TEXT,
		msg TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_logs_type ON logs(log_type);
	CREATE INDEX IF NOT EXISTS idx_logs_source ON logs(source);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertBatch writes records in one transaction, typically all entries
// decoded from a single file.
func (s *Store) InsertBatch(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO logs (source, log_type, timestamp, level, pid, tid, tag, msg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Source, r.Type, r.Timestamp, r.Level, r.PID, r.TID, r.Tag, r.Msg); err != nil {
			return fmt.Errorf("failed to insert record: %v", err)
		}
	}
	return tx.Commit()
}

// Count returns the total number of indexed records.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&n)
	return n, err
}

// QueryByType returns records of the given type ordered by timestamp.
func (s *Store) QueryByType(logType int32, limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, source, log_type, timestamp, level, pid, tid, tag, msg
		FROM logs WHERE log_type = ? ORDER BY timestamp LIMIT ?`, logType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// QueryRange returns records with from <= timestamp < to, ordered by
// timestamp.
func (s *Store) QueryRange(from, to int64, limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, source, log_type, timestamp, level, pid, tid, tag, msg
		FROM logs WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp LIMIT ?`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// LastBySource returns the newest record decoded from the given file.
func (s *Store) LastBySource(source string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, source, log_type, timestamp, level, pid, tid, tag, msg
		FROM logs WHERE source = ? ORDER BY timestamp DESC LIMIT 1`, source)

	var r Record
	err := row.Scan(&r.ID, &r.Source, &r.Type, &r.Timestamp, &r.Level, &r.PID, &r.TID, &r.Tag, &r.Msg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Source, &r.Type, &r.Timestamp, &r.Level, &r.PID, &r.TID, &r.Tag, &r.Msg); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
