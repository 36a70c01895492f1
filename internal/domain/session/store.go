package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type memoryEntry struct {
	payload   []byte
	createdAt time.Time
	updatedAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Payloads are stored encoded
// so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}

	s := &Session{ID: id, CreatedAt: e.createdAt, UpdatedAt: e.updatedAt, ExpiresAt: e.expiresAt}
	if err := decodePayload(s, e.payload); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := encodePayload(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = memoryEntry{
		payload:   data,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		expiresAt: s.ExpiresAt,
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sessions)), nil
}
