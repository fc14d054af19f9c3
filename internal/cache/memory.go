package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is a bounded in-process Store
type MemoryStore struct {
	entries *lru.Cache[string, Entry]
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &MemoryStore{entries: c}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := s.entries.Get(key)
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	e.Data = append([]byte(nil), e.Data...)
	s.entries.Add(key, e)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
