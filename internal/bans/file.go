package bans

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-gallery/internal/storage"
)

// FileStore persists one JSON asset per ban in a directory.
type FileStore struct {
	store storage.Storer[*Ban]
	clock func() time.Time
}

func NewFileStore(path string) (*FileStore, error) {
	st, err := storage.NewFileStore[*Ban](path)
	if err != nil {
		return nil, fmt.Errorf("opening ban store: %w", err)
	}
	return &FileStore{store: st, clock: time.Now}, nil
}

func (s *FileStore) Ban(_ context.Context, username string, d time.Duration, reason string) error {
	b := newBan(username, d, reason, s.clock())
	if err := b.Validate(); err != nil {
		return err
	}
	return s.store.Save(Key(username), b)
}

func (s *FileStore) IsBanned(ctx context.Context, username string) (bool, error) {
	key := Key(username)
	b, ok := s.store.Get(key)
	if !ok {
		return false, nil
	}
	if b.Active(s.clock()) {
		return true, nil
	}

	if err := s.store.Delete(key); err != nil {
		slog.WarnContext(ctx, "removing expired ban", "username", username, "error", err)
	}
	return false, nil
}

func (s *FileStore) Unban(_ context.Context, username string) error {
	return s.store.Delete(Key(username))
}

// Prune removes every expired ban and reports how many were removed.
func (s *FileStore) Prune(ctx context.Context) (int, error) {
	now := s.clock()
	removed := 0
	for key, b := range s.store.GetAll() {
		if b.Active(now) {
			continue
		}
		if err := s.store.Delete(key); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		slog.InfoContext(ctx, "pruned expired bans", "count", removed)
	}
	return removed, nil
}
