package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-gallery/internal/session"
)

// HandlerFunc handles one inbound message from a player that is known to be
// in the room. data is the decoded message payload and is never nil.
type HandlerFunc func(ctx context.Context, r Room, sender *session.Player, data map[string]any) error

// Dispatcher routes inbound client messages to their handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for the given message type.
func (d *Dispatcher) Register(msgType string, h HandlerFunc) error {
	if msgType == "" {
		return fmt.Errorf("message type cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler for %q cannot be nil", msgType)
	}
	if _, exists := d.handlers[msgType]; exists {
		return fmt.Errorf("handler for %q already registered", msgType)
	}
	d.handlers[msgType] = h
	return nil
}

// Handles reports whether a handler is registered for msgType.
func (d *Dispatcher) Handles(msgType string) bool {
	_, ok := d.handlers[msgType]
	return ok
}

// Dispatch resolves the sender and runs the handler registered for msgType.
// A message from a session without a player is dropped: it raced with that
// session leaving.
func (d *Dispatcher) Dispatch(ctx context.Context, r Room, sessionId string, msgType string, raw json.RawMessage) error {
	h, ok := d.handlers[msgType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msgType)
	}

	sender := r.State().GetPlayer(sessionId)
	if sender == nil {
		slog.WarnContext(ctx, "message from unknown session", "room", r.Id(), "session", sessionId, "type", msgType)
		return nil
	}

	return h(ctx, r, sender, decodePayload(ctx, raw))
}

func decodePayload(ctx context.Context, raw json.RawMessage) map[string]any {
	data := make(map[string]any)

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return data
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		slog.DebugContext(ctx, "ignoring non-object payload", "error", err)
		return make(map[string]any)
	}
	return data
}
