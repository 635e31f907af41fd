package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-gallery/internal/sanitize"
	"github.com/pixil98/go-gallery/internal/session"
)

const maxEmoteLength = 32

// Chat broadcasts a sanitized chat line to the whole room, sender included,
// and retains it when the room keeps a chat log.
func Chat(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
	raw, _ := data["message"].(string)
	msg := strings.TrimSpace(sanitize.ChatMessage(strings.TrimSpace(raw)))
	if msg == "" {
		slog.DebugContext(ctx, "ignoring empty chat message", "room", r.Id(), "session", sender.SessionId)
		return nil
	}

	ts := time.Now().UnixMilli()
	if r.State().ChatEnabled() {
		r.State().AppendChat(session.ChatMessage{
			Id:        uuid.NewString(),
			SessionId: sender.SessionId,
			Username:  sender.Username,
			Message:   msg,
			Timestamp: ts,
		})
	}

	slog.InfoContext(ctx, "chat", "room", r.Id(), "username", sender.Username, "length", len(msg))

	r.Broadcast(EventChatMessage, ChatMessageEvent{
		SessionId: sender.SessionId,
		Username:  sender.Username,
		Message:   msg,
		Timestamp: ts,
	})
	return nil
}

// Emote relays an emote to everyone but the sender.
func Emote(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
	emote := strings.TrimSpace(sanitize.Text(data["type"], maxEmoteLength))
	if emote == "" {
		slog.DebugContext(ctx, "ignoring empty emote", "room", r.Id(), "session", sender.SessionId)
		return nil
	}

	r.Broadcast(EventPlayerEmote, PlayerEmoteEvent{
		SessionId: sender.SessionId,
		Username:  sender.Username,
		EmoteType: emote,
	}, Except(sender.SessionId))
	return nil
}
