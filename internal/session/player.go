package session

import "time"

// Player is the avatar owned by one connected session.
type Player struct {
	SessionId   string `json:"sessionId"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatarURL,omitempty"`
	AvatarIndex int    `json:"avatarIndex"`

	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	RotationY float64 `json:"rotationY"`

	AnimationState string  `json:"animationState"`
	Speed          float64 `json:"speed"`
	IsMoving       bool    `json:"isMoving"`
	IsViewing      bool    `json:"isViewing"`
	CurrentArtwork string  `json:"currentArtwork"`

	JoinedAt time.Time `json:"-"`
}

// PlayerAttrs holds the sanitized values a Player is created with.
type PlayerAttrs struct {
	Username       string
	AvatarURL      string
	AvatarIndex    int
	X, Y, Z        float64
	RotationY      float64
	AnimationState string
}

// SessionDuration is the time elapsed since the player joined.
func (p *Player) SessionDuration(now time.Time) time.Duration {
	if p.JoinedAt.IsZero() {
		return 0
	}
	return now.Sub(p.JoinedAt)
}

// ChatMessage is one retained chat line.
type ChatMessage struct {
	Id        string `json:"id"`
	SessionId string `json:"sessionId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
