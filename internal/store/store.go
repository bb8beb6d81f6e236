package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a key has no value in a collection.
var ErrNotFound = errors.New("key not found")

// DB holds the shared connection pool. Individual collections are cheap
// views over it.
type DB struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_records (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, key)
)`

func Open(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Collection is a single-collection durable key-value view: one named bucket
// of JSON values keyed by string id. Put is last-writer-wins.
type Collection struct {
	pool *pgxpool.Pool
	name string
}

func (db *DB) Collection(name string) *Collection {
	return &Collection{pool: db.pool, name: name}
}

func (c *Collection) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.pool.QueryRow(ctx,
		`SELECT value FROM kv_records WHERE collection = $1 AND key = $2`,
		c.name, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.name, key, err)
	}
	return value, nil
}

func (c *Collection) All(ctx context.Context) ([][]byte, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT value FROM kv_records WHERE collection = $1 ORDER BY updated_at DESC`,
		c.name,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer rows.Close()

	var values [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (c *Collection) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO kv_records (collection, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		c.name, key, value,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c.name, key, err)
	}
	return nil
}

func (c *Collection) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx,
		`DELETE FROM kv_records WHERE collection = $1 AND key = $2`,
		c.name, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, key, err)
	}
	return nil
}

func (c *Collection) Clear(ctx context.Context) error {
	_, err := c.pool.Exec(ctx,
		`DELETE FROM kv_records WHERE collection = $1`,
		c.name,
	)
	if err != nil {
		return fmt.Errorf("clear %s: %w", c.name, err)
	}
	return nil
}
