// Package bans records which usernames may not join rooms.
package bans

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store records bans by username. A zero duration bans permanently.
type Store interface {
	Ban(ctx context.Context, username string, d time.Duration, reason string) error
	IsBanned(ctx context.Context, username string) (bool, error)
	Unban(ctx context.Context, username string) error
}

// Ban is one recorded ban.
type Ban struct {
	Username  string     `json:"username"`
	Reason    string     `json:"reason"`
	BannedAt  time.Time  `json:"bannedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func newBan(username string, d time.Duration, reason string, now time.Time) *Ban {
	b := &Ban{
		Username: username,
		Reason:   reason,
		BannedAt: now,
	}
	if d > 0 {
		expires := now.Add(d)
		b.ExpiresAt = &expires
	}
	return b
}

func (b *Ban) Validate() error {
	if strings.TrimSpace(b.Username) == "" {
		return fmt.Errorf("username must be set")
	}
	return nil
}

// Active reports whether the ban still applies at now.
func (b *Ban) Active(now time.Time) bool {
	return b.ExpiresAt == nil || now.Before(*b.ExpiresAt)
}

// Key normalizes a sanitized username for lookups, so bans ignore case.
func Key(username string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(username)), " ", "-")
}
