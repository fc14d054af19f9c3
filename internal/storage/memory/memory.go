package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/AlexZinkM/custody-bot/internal/model"
	"github.com/AlexZinkM/custody-bot/internal/storage"
)

// UserStore keeps user documents in process memory. Documents are cloned on the way
// in and out so callers never share slices with the store.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*model.User)}
}

func (s *UserStore) Load(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) Save(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user.Clone()
	return nil
}

func (s *UserStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
