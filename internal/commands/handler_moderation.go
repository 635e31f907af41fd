package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixil98/go-gallery/internal/sanitize"
	"github.com/pixil98/go-gallery/internal/session"
)

const (
	DefaultReason    = "No reason provided"
	PermanentBan     = "permanent"
	maxReasonLength  = 200
	maxDurationLabel = 32
)

// KickUser returns a handler that announces a kick to the room and then asks
// mod to remove the target. A nil mod only announces.
func KickUser(mod Moderator) HandlerFunc {
	return func(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
		target, ok := moderationTarget(ctx, r, sender, data)
		if !ok {
			return nil
		}
		reason := moderationReason(data)

		slog.InfoContext(ctx, "kicking user", "room", r.Id(), "admin", sender.Username, "target", target, "reason", reason)

		r.Broadcast(EventUserKicked, UserKickedEvent{
			UserId:  target,
			AdminId: sender.SessionId,
			Reason:  reason,
		})

		if mod == nil {
			return nil
		}
		if err := mod.Kick(ctx, target, reason); err != nil {
			return fmt.Errorf("kicking %s: %w", target, err)
		}
		return nil
	}
}

// BanUser returns a handler that announces a ban to the room and then asks
// mod to record it and remove the target. A nil mod only announces.
func BanUser(mod Moderator) HandlerFunc {
	return func(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
		target, ok := moderationTarget(ctx, r, sender, data)
		if !ok {
			return nil
		}
		reason := moderationReason(data)
		label, d := BanDuration(data["duration"])

		slog.InfoContext(ctx, "banning user", "room", r.Id(), "admin", sender.Username, "target", target, "duration", label, "reason", reason)

		r.Broadcast(EventUserBanned, UserBannedEvent{
			UserId:   target,
			AdminId:  sender.SessionId,
			Duration: label,
			Reason:   reason,
		})

		if mod == nil {
			return nil
		}
		if err := mod.Ban(ctx, target, d, reason); err != nil {
			return fmt.Errorf("banning %s: %w", target, err)
		}
		return nil
	}
}

// BanDuration parses a ban duration. Missing, "permanent" and unparseable
// values are permanent, reported as a zero duration.
func BanDuration(raw any) (string, time.Duration) {
	label := strings.ToLower(sanitize.Text(raw, maxDurationLabel))
	if label == "" || label == PermanentBan {
		return PermanentBan, 0
	}

	d, err := time.ParseDuration(label)
	if err != nil || d <= 0 {
		return PermanentBan, 0
	}
	return label, d
}

func moderationTarget(ctx context.Context, r Room, sender *session.Player, data map[string]any) (string, bool) {
	target := sanitize.Id(data["userId"])
	if target == "" {
		slog.DebugContext(ctx, "ignoring moderation without target", "room", r.Id(), "admin", sender.SessionId)
		return "", false
	}
	if target == sender.SessionId {
		slog.DebugContext(ctx, "ignoring self moderation", "room", r.Id(), "admin", sender.SessionId)
		return "", false
	}
	return target, true
}

func moderationReason(data map[string]any) string {
	reason := strings.TrimSpace(sanitize.Text(data["reason"], maxReasonLength))
	if reason == "" {
		return DefaultReason
	}
	return reason
}
