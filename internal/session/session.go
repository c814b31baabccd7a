// Package session keeps the pointer to each user's open check-in.
//
// The Tracker answers from an in-memory cache and falls back to a persisted
// Store, so a restarted server still finds sessions opened before the
// restart. Both layers are advisory: callers reconcile against the
// check-in records before acting on them.
package session

import (
	"context"
	"sync"

	"gymez/checkin-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store persists active sessions by user id.
type Store interface {
	// Get returns the session and whether one exists.
	Get(ctx context.Context, userID primitive.ObjectID) (domain.ActiveSession, bool, error)
	Set(ctx context.Context, userID primitive.ObjectID, s domain.ActiveSession) error
	// ClearIf removes the session only while it still points at checkInID
	// and reports whether it did.
	ClearIf(ctx context.Context, userID, checkInID primitive.ObjectID) (bool, error)
}

// Tracker layers an in-memory cache over a persisted Store.
type Tracker struct {
	mu     sync.RWMutex
	cache  map[primitive.ObjectID]domain.ActiveSession
	stored Store
}

// NewTracker creates a Tracker backed by stored.
func NewTracker(stored Store) *Tracker {
	return &Tracker{
		cache:  make(map[primitive.ObjectID]domain.ActiveSession),
		stored: stored,
	}
}

// Get returns the user's active session from memory, or from the store
// when memory has none. A store hit is copied into memory.
func (t *Tracker) Get(ctx context.Context, userID primitive.ObjectID) (domain.ActiveSession, bool, error) {
	t.mu.RLock()
	s, ok := t.cache[userID]
	t.mu.RUnlock()
	if ok {
		return s, true, nil
	}

	s, ok, err := t.stored.Get(ctx, userID)
	if err != nil || !ok {
		return domain.ActiveSession{}, false, err
	}

	t.mu.Lock()
	t.cache[userID] = s
	t.mu.Unlock()
	return s, true, nil
}

// Reload drops the cached entry and reads the store again. Another
// process sharing the store may have replaced the session since it was
// cached.
func (t *Tracker) Reload(ctx context.Context, userID primitive.ObjectID) (domain.ActiveSession, bool, error) {
	t.mu.Lock()
	delete(t.cache, userID)
	t.mu.Unlock()
	return t.Get(ctx, userID)
}

// Set writes through to the store, then updates memory.
func (t *Tracker) Set(ctx context.Context, userID primitive.ObjectID, s domain.ActiveSession) error {
	if err := t.stored.Set(ctx, userID, s); err != nil {
		return err
	}
	t.mu.Lock()
	t.cache[userID] = s
	t.mu.Unlock()
	return nil
}

// Release forgets checkInID as the user's session. Memory and store are
// only cleared where they still point at checkInID, so a newer session
// written by another process survives. Memory is cleared even if the store
// fails so a broken store cannot lock a user out.
func (t *Tracker) Release(ctx context.Context, userID, checkInID primitive.ObjectID) error {
	t.mu.Lock()
	if s, ok := t.cache[userID]; ok && s.CheckInID == checkInID {
		delete(t.cache, userID)
	}
	t.mu.Unlock()
	_, err := t.stored.ClearIf(ctx, userID, checkInID)
	return err
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]domain.ActiveSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[primitive.ObjectID]domain.ActiveSession)}
}

func (m *MemoryStore) Get(_ context.Context, userID primitive.ObjectID) (domain.ActiveSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, userID primitive.ObjectID, s domain.ActiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return nil
}

func (m *MemoryStore) ClearIf(_ context.Context, userID, checkInID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok && s.CheckInID == checkInID {
		delete(m.sessions, userID)
		return true, nil
	}
	return false, nil
}
