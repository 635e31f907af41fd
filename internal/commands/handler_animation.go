package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pixil98/go-gallery/internal/sanitize"
	"github.com/pixil98/go-gallery/internal/session"
)

const maxFreeFormAnimation = 32

// Animation returns a handler for animation messages. With freeForm unset the
// state must be one of the animation vocabulary (anything else becomes idle);
// with freeForm set any short non-empty text is accepted.
func Animation(freeForm bool) HandlerFunc {
	return func(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
		var state string
		if freeForm {
			state = strings.TrimSpace(sanitize.Text(data["state"], maxFreeFormAnimation))
			if state == "" {
				slog.DebugContext(ctx, "ignoring empty animation", "room", r.Id(), "session", sender.SessionId)
				return nil
			}
		} else {
			state = sanitize.AnimationState(data["state"])
		}

		r.State().UpdatePlayer(sender.SessionId, func(p *session.Player) {
			p.AnimationState = state
		})
		return nil
	}
}
