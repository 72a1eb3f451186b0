package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/metrics"
)

// MemoryStore is a Store kept entirely in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]model.User
	events   map[string][]model.Event
	eventIDs map[string]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]model.User),
		events:   make(map[string][]model.Event),
		eventIDs: make(map[string]struct{}),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u model.User) error {
	defer observe("create_user", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, u.ID)
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	defer observe("get_user", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	defer observe("list_users", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *MemoryStore) GetUsers(_ context.Context, ids []string) ([]model.User, error) {
	defer observe("get_users", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id string, e *model.Event, fn func(*model.User) error) (model.User, error) {
	defer observe("update_user", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if e != nil {
		if _, dup := s.eventIDs[e.ID]; dup {
			return model.User{}, fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
		}
	}
	if err := fn(&u); err != nil {
		return model.User{}, err
	}
	s.users[id] = u
	if e != nil {
		s.eventIDs[e.ID] = struct{}{}
		s.events[id] = append(s.events[id], *e)
	}
	return u, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, userID string) ([]model.Event, error) {
	defer observe("list_events", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	src := s.events[userID]
	out := make([]model.Event, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
