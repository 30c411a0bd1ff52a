package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StateRepository stores serialized timer state documents by storage key.
type StateRepository struct {
	db *sql.DB
}

type StateBlob struct {
	Key       string
	Payload   []byte
	UpdatedAt time.Time
}

func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Load(ctx context.Context, key string) (*StateBlob, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT storage_key, payload, updated_at
		 FROM state_blobs
		 WHERE storage_key = ?`,
		key,
	)

	var blob StateBlob
	var payload string
	var updatedAt string
	if err := row.Scan(&blob.Key, &payload, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load state %s: %w", key, err)
	}

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse state updated_at: %w", err)
	}
	blob.Payload = []byte(payload)
	blob.UpdatedAt = parsedUpdatedAt
	return &blob, nil
}

func (r *StateRepository) Save(ctx context.Context, key string, payload []byte) error {
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO state_blobs (storage_key, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(storage_key) DO UPDATE SET
		     payload = excluded.payload,
			 updated_at = excluded.updated_at`,
		key,
		string(payload),
		now,
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", key, err)
	}
	return nil
}

// Keys lists storage keys with the given prefix, oldest update first.
func (r *StateRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT storage_key FROM state_blobs
		 WHERE substr(storage_key, 1, ?) = ?
		 ORDER BY updated_at ASC`,
		len(prefix),
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list state keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if scanErr := rows.Scan(&key); scanErr != nil {
			return nil, fmt.Errorf("scan state key: %w", scanErr)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state keys: %w", err)
	}
	return keys, nil
}
