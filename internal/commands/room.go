package commands

import (
	"context"
	"slices"
	"time"

	"github.com/pixil98/go-gallery/internal/session"
)

// Room is the part of a room that handlers act on.
type Room interface {
	Id() string
	State() *session.State
	// Send delivers an event to a single session.
	Send(sessionId string, event string, payload any)
	// Broadcast delivers an event to every session in the room.
	Broadcast(event string, payload any, opts ...BroadcastOpt)
}

// Moderator enforces moderation decisions outside of the room that issued them.
type Moderator interface {
	Kick(ctx context.Context, sessionId string, reason string) error
	Ban(ctx context.Context, sessionId string, d time.Duration, reason string) error
}

type BroadcastOptions struct {
	Except []string
}

type BroadcastOpt func(*BroadcastOptions)

// Except leaves the given sessions out of a broadcast.
func Except(sessionIds ...string) BroadcastOpt {
	return func(o *BroadcastOptions) {
		o.Except = append(o.Except, sessionIds...)
	}
}

func NewBroadcastOptions(opts ...BroadcastOpt) BroadcastOptions {
	var o BroadcastOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Excludes reports whether sessionId is left out of the broadcast.
func (o BroadcastOptions) Excludes(sessionId string) bool {
	return slices.Contains(o.Except, sessionId)
}
