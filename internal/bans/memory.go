package bans

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps bans for the life of the process.
type MemoryStore struct {
	clock func() time.Time

	mu   sync.Mutex
	bans map[string]*Ban
}

type MemoryOpt func(*MemoryStore)

func WithMemoryClock(clock func() time.Time) MemoryOpt {
	return func(s *MemoryStore) {
		s.clock = clock
	}
}

func NewMemoryStore(opts ...MemoryOpt) *MemoryStore {
	s := &MemoryStore{
		clock: time.Now,
		bans:  make(map[string]*Ban),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Ban(_ context.Context, username string, d time.Duration, reason string) error {
	b := newBan(username, d, reason, s.clock())
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[Key(username)] = b
	return nil
}

func (s *MemoryStore) IsBanned(_ context.Context, username string) (bool, error) {
	key := Key(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bans[key]
	if !ok {
		return false, nil
	}
	if !b.Active(s.clock()) {
		delete(s.bans, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Unban(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, Key(username))
	return nil
}
