package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store interface defines the methods for run-history storage
type Store interface {
	Close() error
	RecordStart(selection []string, timeLimit int) (int64, error)
	RecordFinish(id int64, status string, exitCode int) error
	RecentRuns(limit int) ([]RunRecord, error)
}

// RunRecord is one supervised stress run
type RunRecord struct {
	ID        int64      `json:"id"`
	Selection []string   `json:"selection"`
	TimeLimit int        `json:"time_limit"`
	Status    string     `json:"status"` // "running", "finished", "failed"
	ExitCode  int        `json:"exit_code"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		selection TEXT NOT NULL,
		time_limit INTEGER NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL DEFAULT -1,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordStart inserts a new run in "running" state and returns its id
func (s *SQLiteStore) RecordStart(selection []string, timeLimit int) (int64, error) {
	query := `INSERT INTO runs (selection, time_limit, status, started_at) VALUES (?, ?, 'running', ?)`
	res, err := s.db.Exec(query, strings.Join(selection, ","), timeLimit, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordFinish marks a run as ended with its terminal status and exit code
func (s *SQLiteStore) RecordFinish(id int64, status string, exitCode int) error {
	query := `UPDATE runs SET status = ?, exit_code = ?, ended_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, status, exitCode, time.Now(), id)
	return err
}

// RecentRuns retrieves the most recent runs, newest first
func (s *SQLiteStore) RecentRuns(limit int) ([]RunRecord, error) {
	query := `SELECT id, selection, time_limit, status, exit_code, started_at, ended_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var rec RunRecord
		var selection string
		var ended sql.NullTime
		if err := rows.Scan(&rec.ID, &selection, &rec.TimeLimit, &rec.Status, &rec.ExitCode, &rec.StartedAt, &ended); err != nil {
			return nil, err
		}
		if selection != "" {
			rec.Selection = strings.Split(selection, ",")
		}
		if ended.Valid {
			t := ended.Time
			rec.EndedAt = &t
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
