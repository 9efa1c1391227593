package session

import (
	"context"
	"sync"
	"time"

	"beomusic_backend/internal/model"
)

type memoryEntry struct {
	session   *model.BrowseSession
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Used when Redis is not
// configured and in tests. Sessions expire ttl after their last transition;
// Create sweeps expired sessions at most once per ttl, so abandoned sessions
// are freed even if nobody asks for them again.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*memoryEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      nowUTC,
	}
}

func (m *MemoryStore) Create(ctx context.Context, s *model.BrowseSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	stored := clone(s)
	stored.UpdatedAt = now
	m.sessions[s.ID] = &memoryEntry{session: stored, expiresAt: stored.UpdatedAt.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*model.BrowseSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(id)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) BeginLoad(ctx context.Context, id string) (*model.BrowseSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(id)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if err := checkBegin(s); err != nil {
		return nil, err
	}

	s.Generation++
	s.State = model.SessionLoading
	s.LastError = ""
	m.touch(id, s)
	return clone(s), nil
}

func (m *MemoryStore) Complete(ctx context.Context, id string, gen int64, cursor string, hasMore bool) (*model.BrowseSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.current(id, gen)
	if !ok {
		return nil, model.ErrSessionGone
	}

	s.State = model.SessionLoaded
	s.Cursor = cursor
	s.HasMore = hasMore
	m.touch(id, s)
	return clone(s), nil
}

func (m *MemoryStore) Fail(ctx context.Context, id string, gen int64, reason string) (*model.BrowseSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.current(id, gen)
	if !ok {
		return nil, model.ErrSessionGone
	}

	s.State = model.SessionFailed
	s.LastError = reason
	m.touch(id, s)
	return clone(s), nil
}

func (m *MemoryStore) Reset(ctx context.Context, id string) (*model.BrowseSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(id)
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	s.Generation++
	s.State = model.SessionIdle
	s.Cursor = ""
	s.HasMore = false
	s.LastError = ""
	m.touch(id, s)
	return clone(s), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// sweep drops every expired session. Callers hold mu.
func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 || now.Before(m.nextSweep) {
		return
	}
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

// Len returns the number of sessions held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// lookup returns the live session, evicting it if expired. Callers hold mu.
func (m *MemoryStore) lookup(id string) (*model.BrowseSession, bool) {
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && !m.now().Before(e.expiresAt) {
		delete(m.sessions, id)
		return nil, false
	}
	return e.session, true
}

// current returns the session only if it is still loading under gen.
func (m *MemoryStore) current(id string, gen int64) (*model.BrowseSession, bool) {
	s, ok := m.lookup(id)
	if !ok || s.Generation != gen || s.State != model.SessionLoading {
		return nil, false
	}
	return s, true
}

func (m *MemoryStore) touch(id string, s *model.BrowseSession) {
	s.UpdatedAt = m.now()
	m.sessions[id].expiresAt = s.UpdatedAt.Add(m.ttl)
}
