package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptatlas/promptminer/internal/prompt"
)

// PromptStore is the durable prompt library, keyed by each record's own id.
type PromptStore struct {
	c *Collection
}

func (db *DB) Prompts() *PromptStore {
	return &PromptStore{c: db.Collection("prompts")}
}

func (s *PromptStore) Put(ctx context.Context, rec prompt.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	return s.c.Put(ctx, rec.ID, data)
}

func (s *PromptStore) Get(ctx context.Context, id string) (prompt.Record, error) {
	data, err := s.c.Get(ctx, id)
	if err != nil {
		return prompt.Record{}, err
	}
	var rec prompt.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return prompt.Record{}, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return rec, nil
}

func (s *PromptStore) All(ctx context.Context) ([]prompt.Record, error) {
	values, err := s.c.All(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]prompt.Record, 0, len(values))
	for _, v := range values {
		var rec prompt.Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PromptStore) Delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, id)
}

func (s *PromptStore) Clear(ctx context.Context) error {
	return s.c.Clear(ctx)
}
