package snapshotstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// InMemoryStore keeps snapshots in a map. It mirrors the ordering of the
// SQLite store.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	lastMs  int64
}

type memEntry struct {
	entry Entry
	data  []byte
}

var _ Store = &InMemoryStore{}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: map[string]*memEntry{}}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) Save(_ context.Context, sessionID string, snapshot []byte) (uint64, error) {
	if s == nil {
		return 0, errors.New("in-memory snapshot store: nil store")
	}
	sessionID, err := validate(sessionID, snapshot)
	if err != nil {
		return 0, errors.Wrap(err, "in-memory snapshot store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		e = &memEntry{entry: Entry{SessionID: sessionID}}
		s.entries[sessionID] = e
	}
	e.entry.Version++
	// strictly increasing so List order follows Save order
	now := time.Now().UnixMilli()
	if now <= s.lastMs {
		now = s.lastMs + 1
	}
	s.lastMs = now
	e.entry.UpdatedAtMs = now
	e.entry = describe(e.entry, snapshot)
	e.data = append([]byte(nil), snapshot...)
	return e.entry.Version, nil
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) ([]byte, uint64, error) {
	if s == nil {
		return nil, 0, errors.New("in-memory snapshot store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, 0, errors.Wrapf(ErrNotFound, "session %q", sessionID)
	}
	return append([]byte(nil), e.data...), e.entry.Version, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	if s == nil {
		return errors.New("in-memory snapshot store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID = strings.TrimSpace(sessionID)
	if _, ok := s.entries[sessionID]; !ok {
		return errors.Wrapf(ErrNotFound, "session %q", sessionID)
	}
	delete(s.entries, sessionID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, errors.New("in-memory snapshot store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		ret = append(ret, e.entry)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].UpdatedAtMs != ret[j].UpdatedAtMs {
			return ret[i].UpdatedAtMs > ret[j].UpdatedAtMs
		}
		return ret[i].SessionID < ret[j].SessionID
	})
	if limit > 0 && len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}
