// Package session provides per-session key-value state.
//
// A host keeps one State per logical user session. The chat box stores its
// conversations under its session key and must tolerate the host dropping the
// whole state between interactions, so everything it keeps here is rebuilt on
// demand.
package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// State is the key-value storage of one session.
type State interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Keys() []string
}

// MemoryState is a mutex guarded State.
type MemoryState struct {
	mu     sync.RWMutex
	values map[string]any
}

var _ State = &MemoryState{}

func NewMemoryState() *MemoryState {
	return &MemoryState{values: map[string]any{}}
}

func (s *MemoryState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Keys returns the stored keys, sorted.
func (s *MemoryState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Manager maps session ids to their state. Sessions never share a State.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*MemoryState
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*MemoryState{}}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Session returns the state of sessionID, creating it when missing.
func (m *Manager) Session(sessionID string) State {
	sessionID = strings.TrimSpace(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = NewMemoryState()
		m.sessions[sessionID] = s
	}
	return s
}

// Drop discards the state of sessionID, as a host does when a session ends.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, strings.TrimSpace(sessionID))
}

// IDs returns the known session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
