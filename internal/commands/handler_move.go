package commands

import (
	"context"
	"math"

	"github.com/pixil98/go-gallery/internal/sanitize"
	"github.com/pixil98/go-gallery/internal/session"
)

// Speed thresholds for derived animation.
const (
	WalkSpeed = 0.1
	RunSpeed  = 4.0
)

// Animation states derived from speed. They differ from the walk/run entries
// in the animation vocabulary clients may request.
const (
	AnimationWalking = "walking"
	AnimationRunning = "running"
)

// MovePolicy controls how move messages are applied.
type MovePolicy struct {
	// TrackSpeed derives the animation state and moving flag from speed.
	TrackSpeed bool
	// Bound clamps each coordinate to [-Bound, Bound]. Zero disables it.
	Bound float64
}

// Move returns a handler that writes each present and finite transform field.
func Move(policy MovePolicy) HandlerFunc {
	return func(ctx context.Context, r Room, sender *session.Player, data map[string]any) error {
		r.State().UpdatePlayer(sender.SessionId, func(p *session.Player) {
			if v, ok := sanitize.Float(data["x"]); ok {
				p.X = policy.clamp(v)
			}
			if v, ok := sanitize.Float(data["y"]); ok {
				p.Y = policy.clamp(v)
			}
			if v, ok := sanitize.Float(data["z"]); ok {
				p.Z = policy.clamp(v)
			}
			if v, ok := sanitize.Float(data["rotationY"]); ok {
				p.RotationY = v
			}

			if !policy.TrackSpeed {
				return
			}
			if v, ok := sanitize.Float(data["speed"]); ok {
				p.Speed = math.Max(v, 0)
				p.AnimationState = SpeedAnimation(p.Speed)
				p.IsMoving = p.Speed > WalkSpeed
			}
		})
		return nil
	}
}

func (mp MovePolicy) clamp(v float64) float64 {
	if mp.Bound <= 0 {
		return v
	}
	return sanitize.Clamp(v, -mp.Bound, mp.Bound)
}

// SpeedAnimation maps a speed to the animation it implies.
func SpeedAnimation(speed float64) string {
	switch {
	case speed > RunSpeed:
		return AnimationRunning
	case speed > WalkSpeed:
		return AnimationWalking
	default:
		return sanitize.AnimationIdle
	}
}
