package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps states in a bounded LRU. States idle for longer than
// window+cooldown expire, which is indistinguishable from a fresh identity.
type MemoryStore struct {
	mu     sync.Mutex
	states *expirable.LRU[string, State]
}

func NewMemoryStore(maxUsers int, p Policy) *MemoryStore {
	return &MemoryStore{
		states: expirable.NewLRU[string, State](maxUsers, nil, p.ttl()),
	}
}

func (s *MemoryStore) Check(_ context.Context, id string, now time.Time, p Policy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.states.Get(id)
	next, limited := Apply(prev, ok, now, p)
	s.states.Add(id, next)
	return limited, nil
}

// State returns the current record of id
func (s *MemoryStore) State(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states.Peek(id)
}

func (s *MemoryStore) Len() int {
	return s.states.Len()
}
