package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pixil98/go-gallery/internal/session"
	"github.com/pixil98/go-testutil"
)

type delivery struct {
	to      string
	event   string
	payload any
	except  []string
}

// fakeRoom records everything handlers send through it.
type fakeRoom struct {
	state      *session.State
	sends      []delivery
	broadcasts []delivery
}

func newFakeRoom(sessionIds ...string) *fakeRoom {
	r := &fakeRoom{state: session.NewState(session.WithChatLog(10))}
	for _, id := range sessionIds {
		_, _ = r.state.CreatePlayer(id, session.PlayerAttrs{Username: "user-" + id, AnimationState: "idle"})
	}
	return r
}

func (r *fakeRoom) Id() string           { return "room-1" }
func (r *fakeRoom) State() *session.State { return r.state }

func (r *fakeRoom) Send(sessionId string, event string, payload any) {
	r.sends = append(r.sends, delivery{to: sessionId, event: event, payload: payload})
}

func (r *fakeRoom) Broadcast(event string, payload any, opts ...BroadcastOpt) {
	o := NewBroadcastOptions(opts...)
	r.broadcasts = append(r.broadcasts, delivery{event: event, payload: payload, except: o.Except})
}

// recipients lists who would receive a broadcast in a room of the given members.
func (d delivery) recipients(members ...string) []string {
	o := BroadcastOptions{Except: d.except}
	var out []string
	for _, m := range members {
		if !o.Excludes(m) {
			out = append(out, m)
		}
	}
	return out
}

func TestDispatcher_Register(t *testing.T) {
	noop := func(context.Context, Room, *session.Player, map[string]any) error { return nil }

	tests := map[string]struct {
		msgType string
		handler HandlerFunc
		expErr  string
	}{
		"valid":        {msgType: "move", handler: noop},
		"empty type":   {msgType: "", handler: noop, expErr: "message type cannot be empty"},
		"nil handler":  {msgType: "chat", handler: nil, expErr: `handler for "chat" cannot be nil`},
		"already used": {msgType: "dup", handler: noop, expErr: `handler for "dup" already registered`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			d := NewDispatcher()
			_ = d.Register("dup", noop)

			err := d.Register(tt.msgType, tt.handler)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "handles", d.Handles(tt.msgType), true)
		})
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	tests := map[string]struct {
		sessionId string
		msgType   string
		raw       string
		expCalled bool
		expKeys   int
		expErr    error
	}{
		"object payload": {
			sessionId: "a",
			msgType:   "probe",
			raw:       `{"x": 1, "y": 2}`,
			expCalled: true,
			expKeys:   2,
		},
		"missing payload": {
			sessionId: "a",
			msgType:   "probe",
			raw:       ``,
			expCalled: true,
		},
		"null payload": {
			sessionId: "a",
			msgType:   "probe",
			raw:       `null`,
			expCalled: true,
		},
		"array payload": {
			sessionId: "a",
			msgType:   "probe",
			raw:       `[1, 2]`,
			expCalled: true,
		},
		"string payload": {
			sessionId: "a",
			msgType:   "probe",
			raw:       `"hello"`,
			expCalled: true,
		},
		"unknown sender": {
			sessionId: "ghost",
			msgType:   "probe",
			raw:       `{}`,
			expCalled: false,
		},
		"unknown type": {
			sessionId: "a",
			msgType:   "teleport",
			raw:       `{}`,
			expErr:    ErrUnknownMessage,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var called bool
			var gotKeys int

			d := NewDispatcher()
			_ = d.Register("probe", func(_ context.Context, _ Room, sender *session.Player, data map[string]any) error {
				called = true
				gotKeys = len(data)
				testutil.AssertEqual(t, "sender", sender.SessionId, tt.sessionId)
				return nil
			})

			err := d.Dispatch(context.Background(), newFakeRoom("a"), tt.sessionId, tt.msgType, json.RawMessage(tt.raw))
			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Fatalf("expected %v, got %v", tt.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "called", called, tt.expCalled)
			testutil.AssertEqual(t, "keys", gotKeys, tt.expKeys)
		})
	}
}

func TestDispatcher_HandlerError(t *testing.T) {
	d := NewDispatcher()
	_ = d.Register("fail", func(context.Context, Room, *session.Player, map[string]any) error {
		return errors.New("boom")
	})

	err := d.Dispatch(context.Background(), newFakeRoom("a"), "a", "fail", nil)
	testutil.AssertErrorContains(t, err, "boom")
}

func TestBroadcastOptions(t *testing.T) {
	o := NewBroadcastOptions(Except("a"), Except("b", "c"))
	testutil.AssertEqual(t, "excludes a", o.Excludes("a"), true)
	testutil.AssertEqual(t, "excludes c", o.Excludes("c"), true)
	testutil.AssertEqual(t, "includes d", o.Excludes("d"), false)

	testutil.AssertEqual(t, "empty", NewBroadcastOptions().Excludes("a"), false)
}
