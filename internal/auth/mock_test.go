package auth

import (
	"context"
	"sync"

	"github.com/hitoshi/myflix/internal/model"
)

// --- モック定義 ---

// memStore はユーザー名をキーとするインメモリのCredentialStore。
type memStore struct {
	mu    sync.Mutex
	users map[string]*model.User

	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	lookups          int
}

func newMemStore(users ...*model.User) *memStore {
	s := &memStore{users: make(map[string]*model.User)}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

func (s *memStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	if s.findByUsernameFn != nil {
		return s.findByUsernameFn(ctx, username)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username], nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memStore) put(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

func (s *memStore) delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

func (s *memStore) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}
