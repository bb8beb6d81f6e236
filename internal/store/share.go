package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/promptatlas/promptminer/internal/prompt"
)

const shareCollection = "share_handoff"

// ShareStore holds at most one pending share envelope under a fixed key.
// Writing overwrites (last-share-wins); TakeLatest consumes.
type ShareStore struct {
	pool *pgxpool.Pool
	c    *Collection
}

func (db *DB) Share() *ShareStore {
	return &ShareStore{pool: db.pool, c: db.Collection(shareCollection)}
}

func (s *ShareStore) PutLatest(ctx context.Context, env prompt.SharedContent) error {
	env.ID = prompt.SharedKey
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal share envelope: %w", err)
	}
	return s.c.Put(ctx, prompt.SharedKey, data)
}

// TakeLatest reads and deletes the pending envelope in one transaction so
// delivery is at-most-once. Returns (nil, nil) when nothing is pending.
func (s *ShareStore) TakeLatest(ctx context.Context) (*prompt.SharedContent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var data []byte
	err = tx.QueryRow(ctx,
		`SELECT value FROM kv_records WHERE collection = $1 AND key = $2 FOR UPDATE`,
		shareCollection, prompt.SharedKey,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read share envelope: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM kv_records WHERE collection = $1 AND key = $2`,
		shareCollection, prompt.SharedKey,
	); err != nil {
		return nil, fmt.Errorf("delete share envelope: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	var env prompt.SharedContent
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal share envelope: %w", err)
	}
	return &env, nil
}
