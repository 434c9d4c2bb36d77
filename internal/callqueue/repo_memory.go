package callqueue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
// It preserves insertion order so equal CreatedAt values keep arrival order,
// matching the ordering contract of the real store.
type MemoryStore struct {
	mu      sync.Mutex
	records []CallRequest // insertion order

	// Writes counts mutating operations that actually touched a record.
	// Idempotence tests assert on it.
	Writes int

	// FailWith, when set, is returned by every operation. Admission degraded
	// mode tests set it to ErrUnavailable.
	FailWith error

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clock: time.Now}
}

func (m *MemoryStore) Create(ctx context.Context, cr CallRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.records = append(m.records, cr)
	m.Writes++
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (CallRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return CallRequest{}, m.FailWith
	}
	for _, cr := range m.records {
		if cr.ID == id {
			return cloneRecord(cr), nil
		}
	}
	return CallRequest{}, ErrNotFound
}

func (m *MemoryStore) UpdateFields(ctx context.Context, id string, f Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	return m.applyLocked(id, f)
}

func (m *MemoryStore) ListActive(ctx context.Context) ([]CallRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var out []CallRequest
	for _, cr := range m.records {
		if cr.Status.Active() {
			out = append(out, cloneRecord(cr))
		}
	}
	// Stable sort keeps insertion order for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) BatchUpdate(ctx context.Context, updates []FieldUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	// All-or-nothing: verify every id exists before touching anything.
	for _, u := range updates {
		if !m.existsLocked(u.ID) {
			return ErrNotFound
		}
	}
	for _, u := range updates {
		if err := m.applyLocked(u.ID, u.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) ListRecent(ctx context.Context, limit int) ([]CallRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]CallRequest, 0, len(m.records))
	for _, cr := range m.records {
		out = append(out, cloneRecord(cr))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	n := int64(len(m.records))
	m.records = nil
	return n, nil
}

func (m *MemoryStore) existsLocked(id string) bool {
	for _, cr := range m.records {
		if cr.ID == id {
			return true
		}
	}
	return false
}

func (m *MemoryStore) applyLocked(id string, f Fields) error {
	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if f.IsZero() {
			return nil
		}
		cr := &m.records[i]
		if f.Status != nil {
			cr.Status = *f.Status
		}
		if f.ClearPosition {
			cr.QueuePosition = nil
		} else if f.Position != nil {
			p := *f.Position
			cr.QueuePosition = &p
		}
		if f.StartedAt != nil {
			t := *f.StartedAt
			cr.StartedAt = &t
		}
		if f.EndedAt != nil {
			t := *f.EndedAt
			cr.EndedAt = &t
		}
		cr.UpdatedAt = m.clock().UTC()
		m.Writes++
		return nil
	}
	return ErrNotFound
}

func cloneRecord(cr CallRequest) CallRequest {
	out := cr
	if cr.QueuePosition != nil {
		p := *cr.QueuePosition
		out.QueuePosition = &p
	}
	if cr.StartedAt != nil {
		t := *cr.StartedAt
		out.StartedAt = &t
	}
	if cr.EndedAt != nil {
		t := *cr.EndedAt
		out.EndedAt = &t
	}
	return out
}
