package commands

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-gallery/internal/sanitize"
	"github.com/pixil98/go-gallery/internal/session"
)

// ViewArtwork marks the sender as viewing an artwork.
func ViewArtwork(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
	artworkId := sanitize.Id(data["artworkId"])
	if artworkId == "" {
		slog.DebugContext(ctx, "ignoring invalid artwork id", "room", r.Id(), "session", sender.SessionId)
		return nil
	}

	r.State().UpdatePlayer(sender.SessionId, func(p *session.Player) {
		p.CurrentArtwork = artworkId
		p.IsViewing = true
	})

	r.Broadcast(EventPlayerViewingArtwork, PlayerViewingArtworkEvent{
		SessionId: sender.SessionId,
		Username:  sender.Username,
		ArtworkId: artworkId,
	}, Except(sender.SessionId))
	return nil
}

// StopViewing clears the sender's viewing state. It always broadcasts, even
// when the sender was not viewing anything.
func StopViewing(ctx context.Context, r Room, sender *session.Player, _ map[string]any) error {
	r.State().UpdatePlayer(sender.SessionId, func(p *session.Player) {
		p.CurrentArtwork = ""
		p.IsViewing = false
	})

	r.Broadcast(EventPlayerStoppedViewing, PlayerStoppedViewingEvent{
		SessionId: sender.SessionId,
		Username:  sender.Username,
	}, Except(sender.SessionId))
	return nil
}
