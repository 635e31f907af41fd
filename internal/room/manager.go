package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-gallery/internal/directory"
	"github.com/pixil98/go-gallery/internal/sanitize"
)

// banTimeout bounds a single write to the ban list.
const banTimeout = 5 * time.Second

// Definition describes a kind of room clients can join by name.
type Definition struct {
	Name         string
	MaxClients   int
	AutoDispose  bool
	Metadata     map[string]any
	Capabilities Capabilities
	// WelcomeMessage is a text/template with sprig functions rendered with
	// WelcomeData. Empty uses DefaultWelcomeMessage.
	WelcomeMessage string

	welcome *template.Template
}

// BanList records banned usernames.
type BanList interface {
	Ban(ctx context.Context, username string, d time.Duration, reason string) error
	IsBanned(ctx context.Context, username string) (bool, error)
}

type seat struct {
	room *Room
	// name is the sanitized username the client asked for, "" for guests.
	name string
}

// Manager hosts rooms: it creates them on demand, hands out seats and keeps
// the registry the directory reads from.
type Manager struct {
	pub      Publisher
	bans     BanList
	roomOpts []RoomOpt

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	defs     map[string]*Definition
	rooms    map[string]*Room
	sessions map[string]*seat
}

type ManagerOpt func(*Manager)

// WithBanList refuses seats to banned usernames and records bans.
func WithBanList(bans BanList) ManagerOpt {
	return func(m *Manager) {
		m.bans = bans
	}
}

// WithRoomOpts applies opts to every room the manager creates.
func WithRoomOpts(opts ...RoomOpt) ManagerOpt {
	return func(m *Manager) {
		m.roomOpts = append(m.roomOpts, opts...)
	}
}

func NewManager(pub Publisher, opts ...ManagerOpt) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		pub:      pub,
		ctx:      ctx,
		cancel:   cancel,
		defs:     make(map[string]*Definition),
		rooms:    make(map[string]*Room),
		sessions: make(map[string]*seat),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Define registers a room type.
func (m *Manager) Define(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("room name cannot be empty")
	}
	if def.MaxClients <= 0 {
		return fmt.Errorf("room %q: max clients must be positive", def.Name)
	}
	if def.Capabilities.Spawn == nil || def.Capabilities.Identity == nil {
		return fmt.Errorf("room %q: spawn policy and identity scheme are required", def.Name)
	}

	tmpl, err := ParseWelcome(def.WelcomeMessage)
	if err != nil {
		return fmt.Errorf("room %q: welcome message: %w", def.Name, err)
	}
	def.welcome = tmpl
	def.Metadata = maps.Clone(def.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.defs[def.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDefinitionExists, def.Name)
	}
	m.defs[def.Name] = &def
	return nil
}

// Start keeps the manager running until ctx is cancelled, then disposes every
// room and waits for them to stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.RLock()
	slog.InfoContext(ctx, "room manager started", "definitions", len(m.defs))
	m.mu.RUnlock()

	<-ctx.Done()
	m.Shutdown()
	return nil
}

// Shutdown locks every room so no new seat is handed out while the rooms
// wind down, then disposes them and waits for their loops to exit.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	for _, r := range m.rooms {
		r.Lock()
	}
	m.mu.RUnlock()

	m.cancel()
	m.wg.Wait()
}

// Create starts a new room of the named type.
func (m *Manager) Create(ctx context.Context, name string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createLocked(ctx, name)
}

func (m *Manager) createLocked(ctx context.Context, name string) (*Room, error) {
	if m.ctx.Err() != nil {
		return nil, fmt.Errorf("room manager stopped: %w", ErrRoomDisposed)
	}

	def, ok := m.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoomType, name)
	}

	opts := append([]RoomOpt{
		WithModerator(m),
		WithDisposeHook(m.removeRoom),
	}, m.roomOpts...)

	r := NewRoom(uuid.NewString(), def, m.pub, opts...)
	m.rooms[r.Id()] = r

	m.wg.Add(1)
	go func() {
		<-r.Done()
		m.wg.Done()
	}()
	r.Activate(m.ctx)

	slog.DebugContext(ctx, "created room", "room", r.Id(), "name", name)
	return r, nil
}

// JoinOrCreate reserves a seat for sessionId in an open room of the named
// type, creating one when every existing room is full or locked. The caller
// completes the join with Room.Join and must call Leave when the session ends.
func (m *Manager) JoinOrCreate(ctx context.Context, name string, sessionId string, opts map[string]any) (*Room, error) {
	m.mu.RLock()
	_, defined := m.defs[name]
	m.mu.RUnlock()
	if !defined {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoomType, name)
	}

	banName, err := m.checkBan(ctx, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionId]; exists {
		return nil, ErrSessionExists
	}

	for _, r := range m.rooms {
		if r.Name() != name {
			continue
		}
		if err := r.reserve(sessionId); err == nil {
			m.sessions[sessionId] = &seat{room: r, name: banName}
			return r, nil
		}
	}

	r, err := m.createLocked(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := r.reserve(sessionId); err != nil {
		return nil, err
	}
	m.sessions[sessionId] = &seat{room: r, name: banName}
	return r, nil
}

// JoinById reserves a seat for sessionId in a specific room.
func (m *Manager) JoinById(ctx context.Context, roomId string, sessionId string, opts map[string]any) (*Room, error) {
	m.mu.RLock()
	r, ok := m.rooms[roomId]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, roomId)
	}

	banName, err := m.checkBan(ctx, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionId]; exists {
		return nil, ErrSessionExists
	}
	if err := r.reserve(sessionId); err != nil {
		return nil, err
	}
	m.sessions[sessionId] = &seat{room: r, name: banName}
	return r, nil
}

// Leave ends a session. It is a no-op for unknown sessions.
func (m *Manager) Leave(sessionId string, consented bool) {
	m.mu.Lock()
	s, ok := m.sessions[sessionId]
	delete(m.sessions, sessionId)
	m.mu.Unlock()

	if ok {
		s.room.Leave(sessionId, consented)
	}
}

// Kick removes a session from whichever room it is in.
func (m *Manager) Kick(ctx context.Context, sessionId string, reason string) error {
	m.mu.RLock()
	s, ok := m.sessions[sessionId]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, sessionId)
	}

	slog.InfoContext(ctx, "kicking session", "room", s.room.Id(), "session", sessionId, "reason", reason)
	return s.room.Kick(sessionId, reason)
}

// Ban records a ban on the session's username and then kicks it. Guests have
// no chosen name to ban, so they are only kicked. The ban store may be remote,
// so recording and the kick that follows run off the caller's goroutine, which
// is usually a room loop.
func (m *Manager) Ban(ctx context.Context, sessionId string, d time.Duration, reason string) error {
	m.mu.RLock()
	s, ok := m.sessions[sessionId]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, sessionId)
	}

	switch {
	case m.bans == nil:
		slog.WarnContext(ctx, "no ban list configured, kicking only", "session", sessionId)
		return m.Kick(ctx, sessionId, reason)
	case s.name == "":
		slog.WarnContext(ctx, "banning guest session, kicking only", "session", sessionId)
		return m.Kick(ctx, sessionId, reason)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		banCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), banTimeout)
		defer cancel()

		if err := m.bans.Ban(banCtx, s.name, d, reason); err != nil {
			slog.ErrorContext(banCtx, "recording ban", "session", sessionId, "username", s.name, "error", err)
		}
		if err := m.Kick(banCtx, sessionId, reason); err != nil {
			slog.WarnContext(banCtx, "kicking banned session", "session", sessionId, "error", err)
		}
	}()
	return nil
}

// checkBan returns the sanitized requested username, or ErrBanned.
func (m *Manager) checkBan(ctx context.Context, opts map[string]any) (string, error) {
	raw := RequestedName(opts)
	if raw == "" {
		return "", nil
	}
	name := sanitize.Username(raw)
	if m.bans == nil {
		return name, nil
	}

	banned, err := m.bans.IsBanned(ctx, name)
	if err != nil {
		slog.WarnContext(ctx, "checking ban list", "username", name, "error", err)
		return name, nil
	}
	if banned {
		return "", fmt.Errorf("%w: %q", ErrBanned, name)
	}
	return name, nil
}

// Tick advances the server clock of every room.
func (m *Manager) Tick(ctx context.Context) error {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		r.Tick()
	}
	return nil
}

// Room returns a live room by id.
func (m *Manager) Room(roomId string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomId]
	return r, ok
}

// List implements directory.Registry.
func (m *Manager) List() []directory.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]directory.Listing, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, listing(r))
	}
	return out
}

// Get implements directory.Registry.
func (m *Manager) Get(roomId string) (directory.Listing, bool) {
	r, ok := m.Room(roomId)
	if !ok {
		return directory.Listing{}, false
	}
	return listing(r), true
}

func listing(r *Room) directory.Listing {
	clients := r.Clients()
	locked := r.Locked()
	return directory.Listing{
		RoomId:     r.Id(),
		Name:       r.Name(),
		Clients:    clients,
		MaxClients: r.MaxClients(),
		Locked:     locked,
		Available:  clients < r.MaxClients() && !locked,
		Metadata:   r.Metadata(),
	}
}

func (m *Manager) removeRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.rooms[r.Id()]; ok && current == r {
		delete(m.rooms, r.Id())
	}
	for id, s := range m.sessions {
		if s.room == r {
			delete(m.sessions, id)
		}
	}
}

// IsReservationError reports whether err means the client could not get a seat.
func IsReservationError(err error) bool {
	return errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrRoomLocked) ||
		errors.Is(err, ErrRoomDisposed) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrUnknownRoomType) ||
		errors.Is(err, ErrBanned) ||
		errors.Is(err, ErrSessionExists)
}
