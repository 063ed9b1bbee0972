// Package session keeps per-browser state on the server: the auth token and
// profile, the guest cart, guest order ids and the guest phone number.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Fixed keys every session may hold.
const (
	KeyToken         = "token"
	KeyUser          = "user"
	KeyGuestCart     = "guestCart"
	KeyGuestOrderIDs = "guestOrderIds"
	KeyGuestPhone    = "guestPhone"
)

var ErrNotFound = errors.New("session value not found")

// Storage reads and writes raw values by session id and key. Get returns
// ErrNotFound for a missing value. Delete with no keys drops the whole
// session.
type Storage interface {
	Get(ctx context.Context, sid, key string) ([]byte, error)
	Set(ctx context.Context, sid, key string, value []byte) error
	Delete(ctx context.Context, sid string, keys ...string) error
}

// MemoryStorage is a process-local Storage for development and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

type memorySession struct {
	values    map[string][]byte
	expiresAt time.Time
}

func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{ttl: ttl, now: time.Now, sessions: make(map[string]*memorySession)}
}

func (m *MemoryStorage) Get(_ context.Context, sid, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Set(_ context.Context, sid, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok || m.expired(s) {
		s = &memorySession{values: make(map[string][]byte)}
		m.sessions[sid] = s
	}
	s.values[key] = append([]byte(nil), value...)
	if m.ttl > 0 {
		s.expiresAt = m.now().Add(m.ttl)
	}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, sid string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(keys) == 0 {
		delete(m.sessions, sid)
		return nil
	}
	if s, ok := m.sessions[sid]; ok {
		for _, k := range keys {
			delete(s.values, k)
		}
	}
	return nil
}

func (m *MemoryStorage) expired(s *memorySession) bool {
	return !s.expiresAt.IsZero() && m.now().After(s.expiresAt)
}
