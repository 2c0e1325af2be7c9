// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborlane/layoutd/internal/log"
	"github.com/harborlane/layoutd/internal/persistence/sqlite"
)

const schemaVersion = 1

// Store is a SQLite-backed composition audit log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the audit database at dbPath and
// applies any pending schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS composition_requests (
		request_id     TEXT PRIMARY KEY,
		path           TEXT NOT NULL,
		occurred_at    TEXT NOT NULL,
		status_code    INTEGER NOT NULL,
		fragment_count INTEGER NOT NULL,
		primary_index  INTEGER NOT NULL,
		duration_ms    INTEGER NOT NULL,
		fragments_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_composition_requests_occurred_at
		ON composition_requests(occurred_at);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record persists the outcome of one completed composition request.
func (s *Store) Record(ctx context.Context, rec Record) error {
	fragmentsJSON, err := json.Marshal(rec.Fragments)
	if err != nil {
		return fmt.Errorf("audit: marshal fragments: %w", err)
	}

	const query = `
	INSERT INTO composition_requests
		(request_id, path, occurred_at, status_code, fragment_count, primary_index, duration_ms, fragments_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(request_id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.RequestID, rec.Path, rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
		rec.StatusCode, rec.FragmentCount, rec.PrimaryIndex, rec.DurationMS, string(fragmentsJSON),
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded requests, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
	SELECT request_id, path, occurred_at, status_code, fragment_count, primary_index, duration_ms, fragments_json
	FROM composition_requests
	ORDER BY occurred_at DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var occurredAt, fragmentsJSON string
		if err := rows.Scan(&rec.RequestID, &rec.Path, &occurredAt, &rec.StatusCode,
			&rec.FragmentCount, &rec.PrimaryIndex, &rec.DurationMS, &fragmentsJSON); err != nil {
			return nil, fmt.Errorf("audit: scan record: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, occurredAt)
		if err := json.Unmarshal([]byte(fragmentsJSON), &rec.Fragments); err != nil {
			return nil, fmt.Errorf("audit: unmarshal fragments: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes records older than retention, relative to now. It returns
// the number of rows removed and is intended to be called periodically by
// the caller (there is no internal ticker).
func (s *Store) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention).UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	res, err := s.db.ExecContext(ctx, "DELETE FROM composition_requests WHERE occurred_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	logger := log.WithComponent("audit")
	logger.Debug().Int64("rows_pruned", n).Msg("pruned audit log")
	return n, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
