package commands

import (
	"context"
	"math"
	"testing"

	"github.com/pixil98/go-gallery/internal/session"
	"github.com/pixil98/go-testutil"
)

func TestMove(t *testing.T) {
	start := session.Player{X: 1, Y: 2, Z: 3, RotationY: 90, AnimationState: "idle"}

	tests := map[string]struct {
		policy MovePolicy
		data   map[string]any
		exp    session.Player
	}{
		"all fields": {
			data: map[string]any{"x": 4.0, "y": 5.0, "z": 6.0, "rotationY": 180.0},
			exp:  session.Player{X: 4, Y: 5, Z: 6, RotationY: 180, AnimationState: "idle"},
		},
		"partial update": {
			data: map[string]any{"z": -7.5},
			exp:  session.Player{X: 1, Y: 2, Z: -7.5, RotationY: 90, AnimationState: "idle"},
		},
		"NaN string ignored": {
			data: map[string]any{"x": "NaN", "y": 9.0},
			exp:  session.Player{X: 1, Y: 9, Z: 3, RotationY: 90, AnimationState: "idle"},
		},
		"non finite ignored": {
			data: map[string]any{"x": math.Inf(1), "z": math.NaN()},
			exp:  start,
		},
		"non numeric ignored": {
			data: map[string]any{"x": "left", "y": true, "z": nil},
			exp:  start,
		},
		"numeric string written": {
			data: map[string]any{"x": "2.5"},
			exp:  session.Player{X: 2.5, Y: 2, Z: 3, RotationY: 90, AnimationState: "idle"},
		},
		"speed ignored without tracking": {
			data: map[string]any{"speed": 5.0},
			exp:  start,
		},
		"running": {
			policy: MovePolicy{TrackSpeed: true},
			data:   map[string]any{"speed": 5.0},
			exp:    session.Player{X: 1, Y: 2, Z: 3, RotationY: 90, Speed: 5, AnimationState: "running", IsMoving: true},
		},
		"walking": {
			policy: MovePolicy{TrackSpeed: true},
			data:   map[string]any{"speed": 4.0},
			exp:    session.Player{X: 1, Y: 2, Z: 3, RotationY: 90, Speed: 4, AnimationState: "walking", IsMoving: true},
		},
		"idle at threshold": {
			policy: MovePolicy{TrackSpeed: true},
			data:   map[string]any{"speed": 0.1},
			exp:    session.Player{X: 1, Y: 2, Z: 3, RotationY: 90, Speed: 0.1, AnimationState: "idle"},
		},
		"negative speed clamped": {
			policy: MovePolicy{TrackSpeed: true},
			data:   map[string]any{"speed": -3.0},
			exp:    session.Player{X: 1, Y: 2, Z: 3, RotationY: 90, Speed: 0, AnimationState: "idle"},
		},
		"bounded": {
			policy: MovePolicy{Bound: 10},
			data:   map[string]any{"x": 50.0, "z": -50.0},
			exp:    session.Player{X: 10, Y: 2, Z: -10, RotationY: 90, AnimationState: "idle"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := newFakeRoom()
			_, _ = r.state.CreatePlayer("a", session.PlayerAttrs{X: start.X, Y: start.Y, Z: start.Z, RotationY: start.RotationY, AnimationState: start.AnimationState})
			sender := r.state.GetPlayer("a")

			err := Move(tt.policy)(context.Background(), r, sender, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			p := r.state.GetPlayer("a")
			testutil.AssertEqual(t, "x", p.X, tt.exp.X)
			testutil.AssertEqual(t, "y", p.Y, tt.exp.Y)
			testutil.AssertEqual(t, "z", p.Z, tt.exp.Z)
			testutil.AssertEqual(t, "rotationY", p.RotationY, tt.exp.RotationY)
			testutil.AssertEqual(t, "speed", p.Speed, tt.exp.Speed)
			testutil.AssertEqual(t, "animation", p.AnimationState, tt.exp.AnimationState)
			testutil.AssertEqual(t, "moving", p.IsMoving, tt.exp.IsMoving)
			testutil.AssertEqual(t, "broadcasts", len(r.broadcasts), 0)
		})
	}
}

func TestSpeedAnimation(t *testing.T) {
	tests := map[string]struct {
		speed float64
		exp   string
	}{
		"stopped":   {speed: 0, exp: "idle"},
		"just idle": {speed: 0.1, exp: "idle"},
		"slow walk": {speed: 0.2, exp: "walking"},
		"fast walk": {speed: 4, exp: "walking"},
		"just run":  {speed: 4.01, exp: "running"},
		"sprinting": {speed: 12, exp: "running"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "animation", SpeedAnimation(tt.speed), tt.exp)
		})
	}
}

func TestAnimation(t *testing.T) {
	tests := map[string]struct {
		freeForm bool
		data     map[string]any
		exp      string
	}{
		"vocabulary member":       {data: map[string]any{"state": "Dance"}, exp: "dance"},
		"unknown becomes idle":    {data: map[string]any{"state": "floss"}, exp: "idle"},
		"missing becomes idle":    {data: map[string]any{}, exp: "idle"},
		"free form accepted":      {freeForm: true, data: map[string]any{"state": "floss"}, exp: "floss"},
		"free form empty ignored": {freeForm: true, data: map[string]any{"state": "  "}, exp: "sit"},
		"free form markup":        {freeForm: true, data: map[string]any{"state": "<b>spin</b>"}, exp: "spin"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := newFakeRoom()
			_, _ = r.state.CreatePlayer("a", session.PlayerAttrs{AnimationState: "sit"})

			err := Animation(tt.freeForm)(context.Background(), r, r.state.GetPlayer("a"), tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "animation", r.state.GetPlayer("a").AnimationState, tt.exp)
		})
	}
}
