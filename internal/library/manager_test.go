package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/promptatlas/promptminer/internal/prompt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory Store for tests. failPut makes every Put fail.
type memStore struct {
	records map[string]prompt.Record
	failPut bool
	puts    int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]prompt.Record)}
}

func (s *memStore) Put(_ context.Context, rec prompt.Record) error {
	s.puts++
	if s.failPut {
		return errors.New("store write failed")
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (prompt.Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return prompt.Record{}, errors.New("not found")
	}
	return rec, nil
}

func (s *memStore) All(_ context.Context) ([]prompt.Record, error) {
	out := make([]prompt.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	delete(s.records, id)
	return nil
}

func (s *memStore) Clear(_ context.Context) error {
	s.records = make(map[string]prompt.Record)
	return nil
}

func rec(id, title string) prompt.Record {
	return prompt.Record{ID: id, Title: title, Content: "prompt " + id, Source: "test"}
}

func TestPrepend_NewestFirst(t *testing.T) {
	m := NewManager(newMemStore(), nil, discardLogger())

	m.Prepend([]prompt.Record{rec("a", "first batch")})
	m.Prepend([]prompt.Record{rec("b", "second batch")})

	session := m.Session()
	if len(session) != 2 {
		t.Fatalf("expected 2 records, got %d", len(session))
	}
	if session[0].ID != "b" || session[1].ID != "a" {
		t.Errorf("expected newest first, got %s then %s", session[0].ID, session[1].ID)
	}
}

func TestSaveToLibrary_MovesRecord(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, nil, discardLogger())
	m.Prepend([]prompt.Record{rec("a", "keep"), rec("b", "save me")})
	m.ToggleSelect("b")

	if err := m.SaveToLibrary(context.Background(), "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.records["b"]; !ok {
		t.Error("record not persisted")
	}
	for _, r := range m.Session() {
		if r.ID == "b" {
			t.Error("saved record still in session list")
		}
	}
	if len(m.Selected()) != 0 {
		t.Error("saved record still selected")
	}

	// Deleting it from the library afterwards must not touch the session.
	if err := m.Delete(context.Background(), "b", true, true); err != nil {
		t.Fatalf("library delete failed: %v", err)
	}
	if len(m.Session()) != 1 || m.Session()[0].ID != "a" {
		t.Errorf("session list affected by library delete: %v", m.Session())
	}
}

func TestSaveToLibrary_StoreFailureLeavesSessionUntouched(t *testing.T) {
	store := newMemStore()
	store.failPut = true
	m := NewManager(store, nil, discardLogger())
	m.Prepend([]prompt.Record{rec("a", "t")})
	m.ToggleSelect("a")

	if err := m.SaveToLibrary(context.Background(), "a"); err == nil {
		t.Fatal("expected error from failing store")
	}
	if len(m.Session()) != 1 {
		t.Error("session list mutated despite persistence failure")
	}
	if len(m.Selected()) != 1 {
		t.Error("selection mutated despite persistence failure")
	}
}

func TestSaveSelected_SwapsAndSwitchesView(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, nil, discardLogger())
	m.Prepend([]prompt.Record{rec("a", "x"), rec("b", "y"), rec("c", "z")})
	m.ToggleSelect("a")
	m.ToggleSelect("c")

	if err := m.SaveSelected(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.records) != 2 {
		t.Errorf("expected 2 persisted records, got %d", len(store.records))
	}
	session := m.Session()
	if len(session) != 1 || session[0].ID != "b" {
		t.Errorf("expected only b left in session, got %v", session)
	}
	if len(m.Selected()) != 0 {
		t.Error("selection not cleared")
	}
	if m.ActiveView() != ViewLibrary {
		t.Errorf("expected view switch to library, got %s", m.ActiveView())
	}
}

func TestSaveSelected_FailureLeavesMemoryConsistent(t *testing.T) {
	store := newMemStore()
	store.failPut = true
	m := NewManager(store, nil, discardLogger())
	m.Prepend([]prompt.Record{rec("a", "x"), rec("b", "y")})
	m.ToggleSelect("a")
	m.ToggleSelect("b")

	if err := m.SaveSelected(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(m.Session()) != 2 {
		t.Error("session list mutated despite persistence failure")
	}
	if len(m.Selected()) != 2 {
		t.Error("selection mutated despite persistence failure")
	}
	if m.ActiveView() != ViewSession {
		t.Error("view switched despite persistence failure")
	}
}

func TestDelete_SessionNeedsNoConfirmation(t *testing.T) {
	m := NewManager(newMemStore(), nil, discardLogger())
	m.Prepend([]prompt.Record{rec("a", "x")})
	m.ToggleSelect("a")

	if err := m.Delete(context.Background(), "a", false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Session()) != 0 {
		t.Error("record not removed from session")
	}
	if len(m.Selected()) != 0 {
		t.Error("record not removed from selection")
	}
}

func TestDelete_LibraryRequiresConfirmation(t *testing.T) {
	store := newMemStore()
	store.records["a"] = rec("a", "x")
	m := NewManager(store, nil, discardLogger())

	err := m.Delete(context.Background(), "a", true, false)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if _, ok := store.records["a"]; !ok {
		t.Error("record deleted without confirmation")
	}

	if err := m.Delete(context.Background(), "a", true, true); err != nil {
		t.Fatalf("confirmed delete failed: %v", err)
	}
	if _, ok := store.records["a"]; ok {
		t.Error("record not deleted after confirmation")
	}
}

func TestBulkDelete(t *testing.T) {
	store := newMemStore()
	store.records["a"] = rec("a", "x")
	store.records["b"] = rec("b", "y")
	m := NewManager(store, nil, discardLogger())
	m.SetView(ViewLibrary)
	m.ToggleSelect("a")
	m.ToggleSelect("b")

	if err := m.BulkDelete(context.Background(), []string{"a", "b"}, true, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if len(store.records) != 2 {
		t.Error("records deleted without confirmation")
	}

	if err := m.BulkDelete(context.Background(), []string{"a", "b"}, true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.records) != 0 {
		t.Errorf("expected empty library, got %d records", len(store.records))
	}
	if len(m.Selected()) != 0 {
		t.Error("selection not cleared after bulk delete")
	}
}

func TestClearLibrary(t *testing.T) {
	store := newMemStore()
	store.records["a"] = rec("a", "x")
	m := NewManager(store, nil, discardLogger())

	if err := m.ClearLibrary(context.Background(), false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if err := m.ClearLibrary(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.records) != 0 {
		t.Error("library not emptied")
	}
}

func TestSetView_ClearsSelection(t *testing.T) {
	m := NewManager(newMemStore(), nil, discardLogger())
	m.Prepend([]prompt.Record{rec("a", "x")})
	m.ToggleSelect("a")

	m.SetView(ViewLibrary)
	if len(m.Selected()) != 0 {
		t.Error("selection survived a view switch")
	}

	// Same view again is a no-op for the selection.
	m.ToggleSelect("a")
	m.SetView(ViewLibrary)
	if len(m.Selected()) != 1 {
		t.Error("selection cleared without a view change")
	}
}

func TestUpdate_InPlace(t *testing.T) {
	store := newMemStore()
	store.records["lib"] = rec("lib", "old")
	m := NewManager(store, nil, discardLogger())
	m.Prepend([]prompt.Record{rec("sess", "old")})

	updated := rec("sess", "new title")
	if err := m.Update(context.Background(), updated); err != nil {
		t.Fatalf("session update failed: %v", err)
	}
	if m.Session()[0].Title != "new title" {
		t.Error("session record not updated in place")
	}

	libUpdated := rec("lib", "new lib title")
	if err := m.Update(context.Background(), libUpdated); err != nil {
		t.Fatalf("library update failed: %v", err)
	}
	if store.records["lib"].Title != "new lib title" {
		t.Error("library record not updated")
	}

	if err := m.Update(context.Background(), rec("ghost", "x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestExport_EmptyIsNoOp(t *testing.T) {
	m := NewManager(newMemStore(), nil, discardLogger())
	name, data, err := m.Export(nil, "prompts", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "" || data != nil {
		t.Errorf("expected no-op for empty input, got %q / %d bytes", name, len(data))
	}
}

func TestExport_DoesNotMutateIDs(t *testing.T) {
	m := NewManager(newMemStore(), nil, discardLogger())
	records := []prompt.Record{rec("a", "x"), rec("b", "y")}

	name, data, err := m.Export(records, "session-export", time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "session-export-2026-08-26.json" {
		t.Errorf("unexpected filename: %q", name)
	}
	if len(data) == 0 {
		t.Fatal("expected export payload")
	}

	ids := []string{records[0].ID, records[1].ID}
	sort.Strings(ids)
	if ids[0] != "a" || ids[1] != "b" {
		t.Error("export mutated record ids")
	}
}
