package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/cityguard/core/model"
)

// SQLiteStore persists reports to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dsn and ensures schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	schema := []string{
		`CREATE TABLE IF NOT EXISTS observer_reports (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        list_key TEXT NOT NULL,
        observer_id TEXT,
        ts INTEGER,
        report TEXT NOT NULL
    );`,
		`CREATE INDEX IF NOT EXISTS observer_reports_key ON observer_reports (list_key, id);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the report under key.
func (s *SQLiteStore) Append(ctx context.Context, key string, r model.Report) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO observer_reports (list_key, observer_id, ts, report) VALUES (?, ?, ?, ?)`,
		key, r.ObserverID, r.ObservedAt.UnixNano(), string(b))
	return err
}

// List returns the reports under key in insertion order.
func (s *SQLiteStore) List(ctx context.Context, key string) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM observer_reports WHERE list_key = ? ORDER BY id`, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []model.Report{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r model.Report
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
