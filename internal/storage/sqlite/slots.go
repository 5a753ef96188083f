package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"planner/internal/collection"
	"planner/internal/common"
)

// GetSlot implements collection.Backend.
func (s *Store) GetSlot(ctx context.Context, key string) ([]byte, int64, error) {
	var (
		data    []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, version FROM slots WHERE key = ?`, key).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, common.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get slot: %w", err)
	}
	return data, version, nil
}

// PutSlot implements collection.Backend. The version check and the write run
// in one transaction.
func (s *Store) PutSlot(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin slot write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM slots WHERE key = ?`, key).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read slot version: %w", err)
	}
	if expected != collection.Unconditional && expected != current {
		return 0, common.ErrVersionConflict
	}

	next := current + 1
	_, err = tx.ExecContext(ctx, `INSERT INTO slots(key, data, version, updated_at) VALUES(?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET data = excluded.data, version = excluded.version, updated_at = excluded.updated_at`,
		key, data, next, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("write slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit slot: %w", err)
	}
	return next, nil
}
