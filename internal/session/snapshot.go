package session

// Snapshot is the full state sent to a client when it joins.
type Snapshot struct {
	Players      map[string]Player `json:"players"`
	ChatMessages []ChatMessage     `json:"chatMessages,omitempty"`
	ServerTime   int64             `json:"serverTime"`
}

// Patch holds everything that changed since the previous patch.
type Patch struct {
	Players      map[string]Player `json:"players,omitempty"`
	Removed      []string          `json:"removed,omitempty"`
	ChatMessages []ChatMessage     `json:"chatMessages,omitempty"`
	ServerTime   int64             `json:"serverTime"`
}

// Snapshot copies the full state.
func (s *State) Snapshot() Snapshot {
	players := make(map[string]Player, len(s.players))
	for id, p := range s.players {
		players[id] = *p
	}

	return Snapshot{
		Players:      players,
		ChatMessages: s.ChatLog(),
		ServerTime:   s.serverTime,
	}
}

// Patch returns the changes accumulated since the last call and resets the
// change set. The boolean is false when nothing changed.
func (s *State) Patch() (Patch, bool) {
	if len(s.dirty) == 0 && len(s.removed) == 0 && len(s.newChat) == 0 && !s.timeDirty {
		return Patch{}, false
	}

	p := Patch{ServerTime: s.serverTime}

	if len(s.dirty) > 0 {
		p.Players = make(map[string]Player, len(s.dirty))
		for id := range s.dirty {
			if pl, ok := s.players[id]; ok {
				p.Players[id] = *pl
			}
		}
		clear(s.dirty)
	}

	if len(s.removed) > 0 {
		p.Removed = make([]string, 0, len(s.removed))
		for id := range s.removed {
			p.Removed = append(p.Removed, id)
		}
		clear(s.removed)
	}

	if len(s.newChat) > 0 {
		p.ChatMessages = s.newChat
		s.newChat = nil
	}

	s.timeDirty = false
	return p, true
}
