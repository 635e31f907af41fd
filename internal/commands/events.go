package commands

// Inbound message types.
const (
	MessageMove        = "move"
	MessageAnimation   = "animation"
	MessageChat        = "chat"
	MessageEmote       = "emote"
	MessageViewArtwork = "viewArtwork"
	MessageStopViewing = "stopViewing"
	MessageKickUser    = "kickUser"
	MessageBanUser     = "banUser"
)

// Outbound events emitted by handlers.
const (
	EventChatMessage          = "chatMessage"
	EventPlayerEmote          = "playerEmote"
	EventPlayerViewingArtwork = "playerViewingArtwork"
	EventPlayerStoppedViewing = "playerStoppedViewing"
	EventUserKicked           = "userKicked"
	EventUserBanned           = "userBanned"
)

type ChatMessageEvent struct {
	SessionId string `json:"sessionId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type PlayerEmoteEvent struct {
	SessionId string `json:"sessionId"`
	Username  string `json:"username"`
	EmoteType string `json:"emoteType"`
}

type PlayerViewingArtworkEvent struct {
	SessionId string `json:"sessionId"`
	Username  string `json:"username"`
	ArtworkId string `json:"artworkId"`
}

type PlayerStoppedViewingEvent struct {
	SessionId string `json:"sessionId"`
	Username  string `json:"username"`
}

type UserKickedEvent struct {
	UserId  string `json:"userId"`
	AdminId string `json:"adminId"`
	Reason  string `json:"reason"`
}

type UserBannedEvent struct {
	UserId   string `json:"userId"`
	AdminId  string `json:"adminId"`
	Duration string `json:"duration"`
	Reason   string `json:"reason"`
}
