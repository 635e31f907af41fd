package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"sync"
	"text/template"
	"time"

	"github.com/pixil98/go-gallery/internal/commands"
	"github.com/pixil98/go-gallery/internal/sanitize"
	"github.com/pixil98/go-gallery/internal/session"
)

const (
	DefaultPatchInterval = 50 * time.Millisecond
	taskQueueSize        = 256
)

type Lifecycle int

const (
	LifecycleCreated Lifecycle = iota
	LifecycleActive
	LifecycleDisposed
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleCreated:
		return "created"
	case LifecycleActive:
		return "active"
	case LifecycleDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// Publisher delivers encoded messages to connected sessions.
type Publisher interface {
	Publish(sessionIds []string, data []byte) error
	// Disconnect asks the transport to close the session's connection.
	Disconnect(sessionId string, reason string) error
}

type task func(ctx context.Context)

// Room owns one session state and serializes every change to it on a single
// goroutine. Methods that only enqueue work are safe to call from any
// goroutine.
type Room struct {
	id          string
	name        string
	maxClients  int
	autoDispose bool
	metadata    map[string]any
	caps        Capabilities
	welcome     *template.Template

	pub           Publisher
	dispatcher    *commands.Dispatcher
	clock         func() time.Time
	patchInterval time.Duration
	onDispose     func(*Room)

	// state is only touched from the loop goroutine.
	state *session.State

	tasks    chan task
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu        sync.RWMutex
	seats     map[string]struct{}
	locked    bool
	lifecycle Lifecycle
}

type RoomOpt func(*Room)

func WithPatchInterval(d time.Duration) RoomOpt {
	return func(r *Room) {
		r.patchInterval = d
	}
}

func WithClock(clock func() time.Time) RoomOpt {
	return func(r *Room) {
		r.clock = clock
	}
}

func WithModerator(mod commands.Moderator) RoomOpt {
	return func(r *Room) {
		r.dispatcher = newDispatcher(r.caps, mod)
	}
}

// WithDisposeHook is called once from the room's goroutine after it disposes.
func WithDisposeHook(fn func(*Room)) RoomOpt {
	return func(r *Room) {
		r.onDispose = fn
	}
}

// NewRoom creates a room from a definition. The room accepts no seats until
// Activate is called.
func NewRoom(id string, def *Definition, pub Publisher, opts ...RoomOpt) *Room {
	r := &Room{
		id:            id,
		name:          def.Name,
		maxClients:    def.MaxClients,
		autoDispose:   def.AutoDispose,
		metadata:      maps.Clone(def.Metadata),
		caps:          def.Capabilities,
		welcome:       def.welcome,
		pub:           pub,
		clock:         time.Now,
		patchInterval: DefaultPatchInterval,
		tasks:         make(chan task, taskQueueSize),
		done:          make(chan struct{}),
		seats:         make(map[string]struct{}),
		lifecycle:     LifecycleCreated,
	}
	r.dispatcher = newDispatcher(r.caps, nil)

	for _, opt := range opts {
		opt(r)
	}

	if r.welcome == nil {
		r.welcome, _ = ParseWelcome("")
	}

	r.state = session.NewState(
		session.WithChatLog(r.caps.ChatHistory),
		session.WithClock(r.clock),
	)

	return r
}

func newDispatcher(caps Capabilities, mod commands.Moderator) *commands.Dispatcher {
	d := commands.NewDispatcher()
	for msgType, h := range caps.Handlers(mod) {
		// Keys are unique and handlers non-nil, so this cannot fail.
		_ = d.Register(msgType, h)
	}
	return d
}

func (r *Room) Id() string                 { return r.id }
func (r *Room) Name() string               { return r.name }
func (r *Room) MaxClients() int            { return r.maxClients }
func (r *Room) Capabilities() Capabilities { return r.caps }

// State returns the room's session state. It must only be used from inside
// the room's own tasks.
func (r *Room) State() *session.State { return r.state }

// Metadata returns a copy of the room's metadata.
func (r *Room) Metadata() map[string]any {
	return maps.Clone(r.metadata)
}

// Clients is the number of reserved seats.
func (r *Room) Clients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seats)
}

func (r *Room) Locked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

func (r *Room) Lifecycle() Lifecycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lifecycle
}

// Lock stops the room from accepting new seats.
func (r *Room) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

// Done is closed once the room has been disposed.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// reserve claims a seat for sessionId.
func (r *Room) reserve(sessionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.lifecycle == LifecycleDisposed:
		return ErrRoomDisposed
	case r.locked:
		return ErrRoomLocked
	case len(r.seats) >= r.maxClients:
		return ErrRoomFull
	}
	if _, ok := r.seats[sessionId]; ok {
		return ErrSessionExists
	}

	r.seats[sessionId] = struct{}{}
	return nil
}

// release frees the session's seat and reports whether the room should now
// dispose. The lifecycle change happens under the same lock as reserve, so
// no seat can be claimed in a room that is about to go away.
func (r *Room) release(sessionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.seats, sessionId)
	if r.autoDispose && len(r.seats) == 0 && r.lifecycle == LifecycleActive {
		r.lifecycle = LifecycleDisposed
		r.locked = true
		return true
	}
	return false
}

func (r *Room) hasSeat(sessionId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seats[sessionId]
	return ok
}

// Activate marks the room active and starts processing its tasks in the
// background until ctx is cancelled or the room disposes itself.
func (r *Room) Activate(ctx context.Context) {
	r.mu.Lock()
	if r.lifecycle != LifecycleCreated {
		r.mu.Unlock()
		return
	}
	r.lifecycle = LifecycleActive
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	slog.InfoContext(ctx, "room created", "room", r.id, "name", r.name, "variant", r.caps.Variant.String(), "max_clients", r.maxClients)

	go r.loop(ctx)
}

// Dispose tears the room down regardless of who is still connected.
func (r *Room) Dispose() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Room) loop(ctx context.Context) {
	defer r.finish(ctx)

	ticker := time.NewTicker(r.patchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			r.runTask(ctx, t)
		case <-ticker.C:
			r.runTask(ctx, r.flushPatch)
		}

		if r.Lifecycle() == LifecycleDisposed {
			return
		}
	}
}

func (r *Room) runTask(ctx context.Context, t task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "recovered panic in room task", "room", r.id, "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	t(ctx)
}

func (r *Room) finish(ctx context.Context) {
	r.mu.Lock()
	r.lifecycle = LifecycleDisposed
	r.locked = true
	// Leaves still queued behind the cancel never run; their seats go here.
	clear(r.seats)
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.doneOnce.Do(func() { close(r.done) })

	slog.InfoContext(ctx, "room disposed", "room", r.id, "name", r.name)

	if r.onDispose != nil {
		r.onDispose(r)
	}
}

// enqueue schedules t on the room's goroutine. It blocks while the queue is
// full and reports false once the room is disposed.
func (r *Room) enqueue(t task) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	select {
	case r.tasks <- t:
		return true
	case <-r.done:
		return false
	}
}

// tryEnqueue schedules t unless the queue is full or the room is disposed.
func (r *Room) tryEnqueue(t task) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	select {
	case r.tasks <- t:
		return true
	default:
		return false
	}
}

// Join adds the player for a session that already holds a seat.
func (r *Room) Join(sessionId string, opts map[string]any) error {
	if !r.hasSeat(sessionId) {
		return ErrNotReserved
	}
	if !r.enqueue(func(ctx context.Context) { r.onJoin(ctx, sessionId, opts) }) {
		return ErrRoomDisposed
	}
	return nil
}

// Leave removes the session's player and frees its seat. It is safe to call
// for sessions that never joined.
func (r *Room) Leave(sessionId string, consented bool) {
	ok := r.enqueue(func(ctx context.Context) {
		r.onLeave(ctx, sessionId, consented)
		if r.release(sessionId) {
			slog.InfoContext(ctx, "last client left, disposing room", "room", r.id)
		}
	})
	if !ok {
		r.release(sessionId)
	}
}

// Dispatch queues an inbound client message.
func (r *Room) Dispatch(sessionId string, msgType string, data json.RawMessage) bool {
	return r.enqueue(func(ctx context.Context) {
		err := r.dispatcher.Dispatch(ctx, r, sessionId, msgType, data)
		if err != nil {
			slog.WarnContext(ctx, "handling message", "room", r.id, "session", sessionId, "type", msgType, "error", err)
		}
	})
}

// Tick advances the server clock. Ticks are skipped while the room is busy.
func (r *Room) Tick() {
	r.tryEnqueue(func(context.Context) {
		r.state.Tick()
	})
}

// Kick tells a session why it is being removed and asks the transport to
// disconnect it. The regular leave path follows the disconnect. Kick does not
// touch state, so moderation handlers may call it from the room's goroutine.
func (r *Room) Kick(sessionId string, reason string) error {
	if !r.hasSeat(sessionId) {
		return ErrSessionNotFound
	}

	r.Send(sessionId, EventKicked, KickedEvent{Reason: reason})
	if err := r.pub.Disconnect(sessionId, reason); err != nil {
		return fmt.Errorf("disconnecting session: %w", err)
	}
	return nil
}

// Inspect runs fn on the room's goroutine and waits for it to finish.
func (r *Room) Inspect(ctx context.Context, fn func(*session.State)) error {
	finished := make(chan struct{})
	ok := r.enqueue(func(context.Context) {
		defer close(finished)
		fn(r.state)
	})
	if !ok {
		return ErrRoomDisposed
	}

	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrRoomDisposed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers an event to one session.
func (r *Room) Send(sessionId string, event string, payload any) {
	r.publish([]string{sessionId}, event, payload)
}

// Broadcast delivers an event to every player in the room.
func (r *Room) Broadcast(event string, payload any, opts ...commands.BroadcastOpt) {
	o := commands.NewBroadcastOptions(opts...)

	targets := make([]string, 0, r.state.Count())
	r.state.ForEachPlayer(func(id string, _ *session.Player) {
		if !o.Excludes(id) {
			targets = append(targets, id)
		}
	})
	r.publish(targets, event, payload)
}

func (r *Room) publish(targets []string, event string, payload any) {
	if len(targets) == 0 {
		return
	}

	data, err := Encode(event, payload)
	if err != nil {
		slog.Error("encoding event", "room", r.id, "event", event, "error", err)
		return
	}

	if err := r.pub.Publish(targets, data); err != nil {
		slog.Warn("publishing event", "room", r.id, "event", event, "error", err)
	}
}

func (r *Room) flushPatch(context.Context) {
	patch, changed := r.state.Patch()
	if !changed {
		return
	}
	r.Broadcast(EventPatch, patch)
}

func (r *Room) onJoin(ctx context.Context, sessionId string, opts map[string]any) {
	if !r.hasSeat(sessionId) {
		slog.WarnContext(ctx, "join for released seat", "room", r.id, "session", sessionId)
		return
	}

	id := r.caps.Identity.Identify(opts)
	spawn := r.caps.Spawn.Spawn()

	p, err := r.state.CreatePlayer(sessionId, session.PlayerAttrs{
		Username:       id.Username,
		AvatarURL:      id.AvatarURL,
		AvatarIndex:    id.AvatarIndex,
		X:              spawn.Position.X,
		Y:              spawn.Position.Y,
		Z:              spawn.Position.Z,
		RotationY:      spawn.RotationY,
		AnimationState: sanitize.AnimationIdle,
	})
	if err != nil {
		slog.ErrorContext(ctx, "creating player", "room", r.id, "session", sessionId, "error", err)
		return
	}

	r.Send(sessionId, EventState, r.state.Snapshot())
	r.Send(sessionId, EventWelcome, WelcomeEvent{
		Message:      r.welcomeMessage(ctx, p),
		TotalPlayers: r.state.Count(),
		RoomId:       r.id,
		SessionId:    sessionId,
	})

	joined := PlayerJoinedEvent{
		SessionId: sessionId,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
	}
	if p.AvatarURL == "" {
		idx := p.AvatarIndex
		joined.AvatarIndex = &idx
	}
	r.Broadcast(EventPlayerJoined, joined, commands.Except(sessionId))

	slog.InfoContext(ctx, "player joined", "room", r.id, "session", sessionId, "username", p.Username, "players", r.state.Count(), "max_clients", r.maxClients)
}

func (r *Room) onLeave(ctx context.Context, sessionId string, consented bool) {
	p := r.state.GetPlayer(sessionId)
	if p == nil {
		return
	}

	duration := p.SessionDuration(r.clock())
	if err := r.state.RemovePlayer(sessionId); err != nil {
		slog.ErrorContext(ctx, "removing player", "room", r.id, "session", sessionId, "error", err)
		return
	}

	r.Broadcast(EventPlayerLeft, PlayerLeftEvent{
		SessionId: sessionId,
		Username:  p.Username,
	})

	slog.InfoContext(ctx, "player left", "room", r.id, "session", sessionId, "username", p.Username, "consented", consented, "duration", duration.Round(time.Second).String(), "players", r.state.Count())
}

func (r *Room) welcomeMessage(ctx context.Context, p *session.Player) string {
	msg, err := expandWelcome(r.welcome, WelcomeData{
		Username:     p.Username,
		RoomId:       r.id,
		RoomName:     r.name,
		TotalPlayers: r.state.Count(),
		MaxClients:   r.maxClients,
	})
	if err != nil {
		slog.WarnContext(ctx, "expanding welcome message", "room", r.id, "error", err)
		return fmt.Sprintf("Welcome %s!", p.Username)
	}
	return msg
}
