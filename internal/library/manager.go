package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/promptatlas/promptminer/internal/prompt"
)

// ErrConfirmationRequired is returned by destructive operations when the
// caller has not confirmed. No state changes before confirmation.
var ErrConfirmationRequired = errors.New("confirmation required")

// ErrNotFound is returned when an id is in neither the session list nor the
// library.
var ErrNotFound = errors.New("record not found")

// Store is the durable prompt library the manager reconciles against.
type Store interface {
	Put(ctx context.Context, rec prompt.Record) error
	Get(ctx context.Context, id string) (prompt.Record, error)
	All(ctx context.Context) ([]prompt.Record, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Publisher mirrors the events client; nil disables publishing.
type Publisher interface {
	Publish(subject string, payload any) error
}

// SubjectSaved announces a prompt promoted into the library.
const SubjectSaved = "prompts.library.saved"

// View names which list the selection set is scoped to. Switching views
// always clears the selection.
type View string

const (
	ViewSession View = "session"
	ViewLibrary View = "library"
)

// Manager owns the session list and selection set, and moves records
// between them and the durable store. Persistence always precedes in-memory
// mutation so a store failure leaves memory untouched.
type Manager struct {
	store  Store
	pub    Publisher
	logger *slog.Logger

	mu       sync.Mutex
	session  []prompt.Record
	selected map[string]struct{}
	view     View
}

func NewManager(store Store, pub Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		pub:      pub,
		logger:   logger,
		selected: make(map[string]struct{}),
		view:     ViewSession,
	}
}

// Prepend adds freshly extracted records to the front of the session list.
func (m *Manager) Prepend(records []prompt.Record) {
	if len(records) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = append(append([]prompt.Record{}, records...), m.session...)
}

// Session returns a snapshot of the session list.
func (m *Manager) Session() []prompt.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]prompt.Record, len(m.session))
	copy(out, m.session)
	return out
}

// Library returns all durable records.
func (m *Manager) Library(ctx context.Context) ([]prompt.Record, error) {
	return m.store.All(ctx)
}

// SaveToLibrary persists one session record, then removes it from the
// session list and selection.
func (m *Manager) SaveToLibrary(ctx context.Context, id string) error {
	m.mu.Lock()
	rec, ok := m.findSessionLocked(id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("save %s: %w", id, ErrNotFound)
	}

	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}

	m.mu.Lock()
	m.removeSessionLocked(id)
	delete(m.selected, id)
	m.mu.Unlock()

	m.publishSaved(1)
	return nil
}

// SaveSelected persists every selected session record, then atomically
// swaps the session list to exclude them, clears the selection and switches
// to the library view. A persistence failure leaves the session list and
// selection exactly as they were.
func (m *Manager) SaveSelected(ctx context.Context) error {
	m.mu.Lock()
	var toSave []prompt.Record
	for _, rec := range m.session {
		if _, ok := m.selected[rec.ID]; ok {
			toSave = append(toSave, rec)
		}
	}
	m.mu.Unlock()

	if len(toSave) == 0 {
		return nil
	}

	for _, rec := range toSave {
		if err := m.store.Put(ctx, rec); err != nil {
			return fmt.Errorf("save selected %s: %w", rec.ID, err)
		}
	}

	saved := make(map[string]struct{}, len(toSave))
	for _, rec := range toSave {
		saved[rec.ID] = struct{}{}
	}

	m.mu.Lock()
	kept := m.session[:0]
	for _, rec := range m.session {
		if _, ok := saved[rec.ID]; !ok {
			kept = append(kept, rec)
		}
	}
	m.session = kept
	m.selected = make(map[string]struct{})
	m.view = ViewLibrary
	m.mu.Unlock()

	m.publishSaved(len(toSave))
	return nil
}

// Delete removes one record. Library deletion is confirmation-gated;
// session deletion is direct. Either path drops the id from the selection.
func (m *Manager) Delete(ctx context.Context, id string, fromLibrary, confirmed bool) error {
	if fromLibrary {
		if !confirmed {
			return ErrConfirmationRequired
		}
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	} else {
		m.mu.Lock()
		m.removeSessionLocked(id)
		m.mu.Unlock()
	}

	m.mu.Lock()
	delete(m.selected, id)
	m.mu.Unlock()
	return nil
}

// BulkDelete removes a set of records from one store. Always
// confirmation-gated; clears the selection afterwards.
func (m *Manager) BulkDelete(ctx context.Context, ids []string, fromLibrary, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	if fromLibrary {
		for _, id := range ids {
			if err := m.store.Delete(ctx, id); err != nil {
				return fmt.Errorf("bulk delete %s: %w", id, err)
			}
		}
	} else {
		m.mu.Lock()
		for _, id := range ids {
			m.removeSessionLocked(id)
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.selected = make(map[string]struct{})
	m.mu.Unlock()
	return nil
}

// ClearLibrary empties the entire durable store. Confirmation-gated.
func (m *Manager) ClearLibrary(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}
	m.mu.Lock()
	m.selected = make(map[string]struct{})
	m.mu.Unlock()
	return nil
}

// Update mutates a record in place wherever it currently resides. The id is
// never changed.
func (m *Manager) Update(ctx context.Context, rec prompt.Record) error {
	m.mu.Lock()
	for i := range m.session {
		if m.session[i].ID == rec.ID {
			m.session[i] = rec
			m.mu.Unlock()
			return nil
		}
	}
	m.mu.Unlock()

	if _, err := m.store.Get(ctx, rec.ID); err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, ErrNotFound)
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	return nil
}

// Find locates a record by id in the session list, then the library.
func (m *Manager) Find(ctx context.Context, id string) (prompt.Record, error) {
	m.mu.Lock()
	rec, ok := m.findSessionLocked(id)
	m.mu.Unlock()
	if ok {
		return rec, nil
	}
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return prompt.Record{}, fmt.Errorf("find %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Export serializes records into the portable schema. Empty input is a
// no-op (empty filename, nil data).
func (m *Manager) Export(records []prompt.Record, prefix string, now time.Time) (string, []byte, error) {
	if len(records) == 0 {
		return "", nil, nil
	}
	data, err := prompt.MarshalExport(prompt.BuildExport(records))
	if err != nil {
		return "", nil, fmt.Errorf("export: %w", err)
	}
	return prompt.ExportFilename(prefix, now), data, nil
}

// SetView switches the active view. The selection never spans views, so it
// is always cleared.
func (m *Manager) SetView(v View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v != m.view {
		m.selected = make(map[string]struct{})
	}
	m.view = v
}

func (m *Manager) ActiveView() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// ToggleSelect flips an id in the selection set.
func (m *Manager) ToggleSelect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
	} else {
		m.selected[id] = struct{}{}
	}
}

// Selected returns the currently selected ids.
func (m *Manager) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	return out
}

func (m *Manager) findSessionLocked(id string) (prompt.Record, bool) {
	for _, rec := range m.session {
		if rec.ID == id {
			return rec, true
		}
	}
	return prompt.Record{}, false
}

func (m *Manager) removeSessionLocked(id string) {
	for i, rec := range m.session {
		if rec.ID == id {
			m.session = append(m.session[:i], m.session[i+1:]...)
			return
		}
	}
}

func (m *Manager) publishSaved(count int) {
	if m.pub == nil {
		return
	}
	if err := m.pub.Publish(SubjectSaved, map[string]any{"count": count}); err != nil {
		m.logger.Warn("failed to publish library save", "error", err)
	}
}
