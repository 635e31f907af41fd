package room

import (
	"encoding/json"
	"fmt"
)

// Events sent by the room itself.
const (
	EventState        = "state"
	EventPatch        = "patch"
	EventWelcome      = "welcome"
	EventPlayerJoined = "playerJoined"
	EventPlayerLeft   = "playerLeft"
	EventKicked       = "kicked"
)

// Message is the wire envelope used in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type WelcomeEvent struct {
	Message      string `json:"message"`
	TotalPlayers int    `json:"totalPlayers"`
	RoomId       string `json:"roomId"`
	// SessionId tells the client which player in the state is its own.
	SessionId string `json:"sessionId"`
}

type PlayerJoinedEvent struct {
	SessionId   string `json:"sessionId"`
	Username    string `json:"username"`
	AvatarIndex *int   `json:"avatarIndex,omitempty"`
	AvatarURL   string `json:"avatarURL,omitempty"`
}

type PlayerLeftEvent struct {
	SessionId string `json:"sessionId"`
	Username  string `json:"username"`
}

type KickedEvent struct {
	Reason string `json:"reason"`
}

// Encode wraps payload in a Message envelope.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", event, err)
	}
	return json.Marshal(Message{Type: event, Data: data})
}
