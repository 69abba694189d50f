// Copyright 2025 The Admission Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const createWindowTableSQL = `
CREATE TABLE IF NOT EXISTS admission_windows (
    policy VARCHAR(50) NOT NULL,
    identifier VARCHAR(255) NOT NULL,
    request_count BIGINT NOT NULL DEFAULT 0,
    reset_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (policy, identifier)
);

CREATE INDEX IF NOT EXISTS idx_admission_windows_reset_at ON admission_windows(reset_at);
`

// SQLStore is a SQL-backed implementation of Store. It lets multiple service
// instances share window state: the decision algorithm is unchanged, only the
// record storage moves into the database.
// Supported dialects: "postgres", "mysql", "sqlite".
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates a SQL-backed store and initializes its schema.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createWindowTableSQL); err != nil {
		return fmt.Errorf("failed to create admission_windows table: %w", err)
	}
	return nil
}

// Take records one request inside a transaction so that concurrent requests
// for the same identifier serialize on the row instead of losing updates.
func (s *SQLStore) Take(ctx context.Context, id string, p Policy) (Verdict, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()

	query := `SELECT request_count, reset_at FROM admission_windows WHERE policy = ? AND identifier = ?`
	if s.dialect == "postgres" {
		query = `SELECT request_count, reset_at FROM admission_windows WHERE policy = $1 AND identifier = $2 FOR UPDATE`
	} else if s.dialect == "mysql" {
		query += ` FOR UPDATE`
	}

	var count int64
	var resetAt time.Time
	err = tx.QueryRowContext(ctx, query, p.Name, id).Scan(&count, &resetAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Verdict{}, fmt.Errorf("failed to query window record: %w", err)
	}

	// Absent or expired records start a fresh window. Counts are replaced,
	// never carried over.
	if errors.Is(err, sql.ErrNoRows) || !resetAt.After(now) {
		count, storedReset, err := s.insertWindow(ctx, tx, p.Name, id, now.Add(p.Window), now)
		if err != nil {
			return Verdict{}, err
		}
		if err := tx.Commit(); err != nil {
			return Verdict{}, fmt.Errorf("failed to commit window record: %w", err)
		}
		if count > p.MaxRequests {
			return Verdict{Allowed: false, Remaining: 0, ResetTime: storedReset}, nil
		}
		return Verdict{Allowed: true, Remaining: p.MaxRequests - count, ResetTime: storedReset}, nil
	}

	count++
	update := `UPDATE admission_windows SET request_count = ?, updated_at = ? WHERE policy = ? AND identifier = ?`
	if s.dialect == "postgres" {
		update = `UPDATE admission_windows SET request_count = $1, updated_at = $2 WHERE policy = $3 AND identifier = $4`
	}
	if _, err := tx.ExecContext(ctx, update, count, now, p.Name, id); err != nil {
		return Verdict{}, fmt.Errorf("failed to update window record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Verdict{}, fmt.Errorf("failed to commit window record: %w", err)
	}

	if count > p.MaxRequests {
		return Verdict{Allowed: false, Remaining: 0, ResetTime: resetAt}, nil
	}
	return Verdict{Allowed: true, Remaining: p.MaxRequests - count, ResetTime: resetAt}, nil
}

// insertWindow starts a fresh window for a key the transaction saw as absent
// or expired. FOR UPDATE cannot lock a row that does not exist yet, so two
// cold-key transactions can both reach this path; the guarded upsert turns
// the loser's insert into an increment on the winner's still-live window
// instead of overwriting it.
func (s *SQLStore) insertWindow(ctx context.Context, tx *sql.Tx, policy, id string, resetAt, now time.Time) (int64, time.Time, error) {
	if s.dialect == "mysql" {
		// Assignment order matters: request_count must read reset_at before
		// it is reassigned.
		query := `
			INSERT INTO admission_windows (policy, identifier, request_count, reset_at, created_at, updated_at)
			VALUES (?, ?, 1, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				request_count = IF(reset_at > VALUES(created_at), request_count + 1, 1),
				reset_at = IF(reset_at > VALUES(created_at), reset_at, VALUES(reset_at)),
				updated_at = VALUES(updated_at)
		`
		if _, err := tx.ExecContext(ctx, query, policy, id, resetAt, now, now); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to upsert window record: %w", err)
		}

		var count int64
		var storedReset time.Time
		readback := `SELECT request_count, reset_at FROM admission_windows WHERE policy = ? AND identifier = ?`
		if err := tx.QueryRowContext(ctx, readback, policy, id).Scan(&count, &storedReset); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to read back window record: %w", err)
		}
		return count, storedReset, nil
	}

	query := `
		INSERT INTO admission_windows (policy, identifier, request_count, reset_at, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (policy, identifier) DO UPDATE SET
			request_count = CASE WHEN admission_windows.reset_at > EXCLUDED.created_at
				THEN admission_windows.request_count + 1 ELSE 1 END,
			reset_at = CASE WHEN admission_windows.reset_at > EXCLUDED.created_at
				THEN admission_windows.reset_at ELSE EXCLUDED.reset_at END,
			updated_at = EXCLUDED.updated_at
		RETURNING request_count, reset_at
	`
	if s.dialect == "postgres" {
		query = `
			INSERT INTO admission_windows (policy, identifier, request_count, reset_at, created_at, updated_at)
			VALUES ($1, $2, 1, $3, $4, $5)
			ON CONFLICT (policy, identifier) DO UPDATE SET
				request_count = CASE WHEN admission_windows.reset_at > EXCLUDED.created_at
					THEN admission_windows.request_count + 1 ELSE 1 END,
				reset_at = CASE WHEN admission_windows.reset_at > EXCLUDED.created_at
					THEN admission_windows.reset_at ELSE EXCLUDED.reset_at END,
				updated_at = EXCLUDED.updated_at
			RETURNING request_count, reset_at
		`
	}

	var count int64
	var storedReset time.Time
	if err := tx.QueryRowContext(ctx, query, policy, id, resetAt, now, now).Scan(&count, &storedReset); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to upsert window record: %w", err)
	}
	return count, storedReset, nil
}

// Reset deletes all window records for the identifier.
func (s *SQLStore) Reset(ctx context.Context, id string) error {
	query := `DELETE FROM admission_windows WHERE identifier = ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM admission_windows WHERE identifier = $1`
	}

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reset identifier: %w", err)
	}
	return nil
}

// Sweep deletes expired window records.
func (s *SQLStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE FROM admission_windows WHERE reset_at < ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM admission_windows WHERE reset_at < $1`
	}

	result, err := s.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count evicted records: %w", err)
	}
	return int(removed), nil
}

// Close releases the store handle.
// The underlying database connection may be shared with other components, so
// it is not closed here.
func (s *SQLStore) Close() error {
	return nil
}

// Dialect returns the SQL dialect (for testing).
func (s *SQLStore) Dialect() string {
	return s.dialect
}
