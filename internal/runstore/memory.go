package runstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local, non-persistent Store. It is used for
// short-lived CLI invocations and as the base every disk-backed store
// wraps.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*Record
	// order records creation order. History walks it newest-first and
	// then stable-sorts by CreatedAt, so runs with equal CreatedAt
	// timestamps stay newest-first.
	order []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Record)}
}

func (m *MemoryStore) CreateRun(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	now := time.Now()
	m.runs[id] = &Record{
		ID:        id,
		Request:   req,
		Status:    Status{State: Pending, UpdatedAt: now},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryStore) UpdateStatus(id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status.State.Terminal() {
		return nil
	}
	status.UpdatedAt = time.Now()
	rec.Status = status
	rec.UpdatedAt = status.UpdatedAt
	return nil
}

func (m *MemoryStore) AppendEvent(id string, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	rec.Events = append(rec.Events, ev)
	rec.UpdatedAt = ev.Timestamp
	return nil
}

func (m *MemoryStore) Run(id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.runs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Status(id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.runs[id]
	if !ok {
		return Status{}, ErrNotFound
	}
	return rec.Status, nil
}

func (m *MemoryStore) History(limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.runs[m.order[i]].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Stop(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.runs[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Status.State.Terminal() {
		return false, nil
	}
	now := time.Now()
	rec.Status = Status{State: Canceled, Message: "stopped by user", UpdatedAt: now}
	rec.UpdatedAt = now
	return true, nil
}

// snapshotAll returns every record, in creation order, for callers
// (e.g. the disk-backed store) that need the full set to serialize.
func (m *MemoryStore) snapshotAll() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.runs[id].Clone())
	}
	return out
}

// loadAll replaces the store's contents with recs, in the given order.
// It is used by the disk-backed store to hydrate from its file on
// startup.
func (m *MemoryStore) loadAll(recs []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = make(map[string]*Record, len(recs))
	m.order = make([]string, 0, len(recs))
	for i := range recs {
		rec := recs[i]
		m.runs[rec.ID] = &rec
		m.order = append(m.order, rec.ID)
	}
}
