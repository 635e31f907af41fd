package session

import (
	"time"
)

// State is the authoritative data model for one room. It is not safe for
// concurrent use: the owning room mutates it from its own task loop only.
type State struct {
	clock   func() time.Time
	chatCap int

	players    map[string]*Player
	chat       []ChatMessage
	serverTime int64

	dirty     map[string]struct{}
	removed   map[string]struct{}
	newChat   []ChatMessage
	timeDirty bool
}

type StateOpt func(*State)

// WithChatLog retains the most recent limit chat messages. A limit of zero
// disables the chat log.
func WithChatLog(limit int) StateOpt {
	return func(s *State) {
		s.chatCap = limit
	}
}

func WithClock(clock func() time.Time) StateOpt {
	return func(s *State) {
		s.clock = clock
	}
}

func NewState(opts ...StateOpt) *State {
	s := &State{
		clock:   time.Now,
		players: make(map[string]*Player),
		dirty:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.serverTime = s.clock().UnixMilli()
	return s
}

// CreatePlayer adds a player for the session. Creating a player for a session
// that already has one is a caller bug and returns ErrPlayerExists.
func (s *State) CreatePlayer(sessionId string, attrs PlayerAttrs) (*Player, error) {
	if _, exists := s.players[sessionId]; exists {
		return nil, ErrPlayerExists
	}

	p := &Player{
		SessionId:      sessionId,
		Username:       attrs.Username,
		AvatarURL:      attrs.AvatarURL,
		AvatarIndex:    attrs.AvatarIndex,
		X:              attrs.X,
		Y:              attrs.Y,
		Z:              attrs.Z,
		RotationY:      attrs.RotationY,
		AnimationState: attrs.AnimationState,
		JoinedAt:       s.clock(),
	}
	s.players[sessionId] = p
	s.dirty[sessionId] = struct{}{}
	delete(s.removed, sessionId)

	return p, nil
}

// GetPlayer returns the player for the session, or nil if there is none.
func (s *State) GetPlayer(sessionId string) *Player {
	return s.players[sessionId]
}

// UpdatePlayer applies fn to the session's player and marks it changed.
// It reports whether the player exists.
func (s *State) UpdatePlayer(sessionId string, fn func(*Player)) bool {
	p, ok := s.players[sessionId]
	if !ok {
		return false
	}
	fn(p)
	s.dirty[sessionId] = struct{}{}
	return true
}

// RemovePlayer deletes the session's player.
func (s *State) RemovePlayer(sessionId string) error {
	if _, ok := s.players[sessionId]; !ok {
		return ErrPlayerNotFound
	}
	delete(s.players, sessionId)
	delete(s.dirty, sessionId)
	s.removed[sessionId] = struct{}{}
	return nil
}

// ChatEnabled reports whether chat messages are retained.
func (s *State) ChatEnabled() bool {
	return s.chatCap > 0
}

// AppendChat retains msg, evicting the oldest entry once the log is full.
func (s *State) AppendChat(msg ChatMessage) {
	if s.chatCap <= 0 {
		return
	}
	if len(s.chat) >= s.chatCap {
		s.chat = append(s.chat[:0], s.chat[len(s.chat)-s.chatCap+1:]...)
	}
	s.chat = append(s.chat, msg)
	s.newChat = append(s.newChat, msg)
}

// ChatLog returns a copy of the retained chat messages, oldest first.
func (s *State) ChatLog() []ChatMessage {
	out := make([]ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// Tick advances the server clock.
func (s *State) Tick() {
	s.serverTime = s.clock().UnixMilli()
	s.timeDirty = true
}

func (s *State) ServerTime() int64 {
	return s.serverTime
}

func (s *State) Count() int {
	return len(s.players)
}

// ForEachPlayer calls fn for each player in no particular order.
func (s *State) ForEachPlayer(fn func(string, *Player)) {
	for id, p := range s.players {
		fn(id, p)
	}
}

// SessionIds returns the keys of the players map.
func (s *State) SessionIds() []string {
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	return ids
}
