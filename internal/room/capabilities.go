package room

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/pixil98/go-gallery/internal/commands"
	"github.com/pixil98/go-gallery/internal/sanitize"
)

type Variant int

const (
	VariantGallery Variant = iota
	VariantAdmin
)

func (v *Variant) UnmarshalText(text []byte) error {
	switch string(text) {
	case "gallery":
		*v = VariantGallery
	case "admin":
		*v = VariantAdmin
	default:
		return fmt.Errorf("unknown room variant: %s", text)
	}
	return nil
}

func (v Variant) String() string {
	switch v {
	case VariantGallery:
		return "gallery"
	case VariantAdmin:
		return "admin"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Vec3 is a position in world units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform is a spawn position and facing.
type Transform struct {
	Position  Vec3
	RotationY float64
}

// SpawnPolicy places a newly joined player.
type SpawnPolicy interface {
	Spawn() Transform
}

// SpawnPoints picks one of a fixed set of points with a random facing.
type SpawnPoints []Vec3

func (sp SpawnPoints) Spawn() Transform {
	if len(sp) == 0 {
		return Transform{}
	}
	return Transform{
		Position:  sp[rand.IntN(len(sp))],
		RotationY: rand.Float64() * 360,
	}
}

// SpawnRadius places players uniformly in a square of the given half width
// around the origin, facing forward.
type SpawnRadius float64

func (r SpawnRadius) Spawn() Transform {
	return Transform{
		Position: Vec3{
			X: rand.Float64()*2*float64(r) - float64(r),
			Z: rand.Float64()*2*float64(r) - float64(r),
		},
	}
}

// Identity is the sanitized public identity of a joining player.
type Identity struct {
	Username    string
	AvatarURL   string
	AvatarIndex int
}

// IdentityScheme derives a player's identity from its join options.
type IdentityScheme interface {
	Identify(opts map[string]any) Identity
}

// IndexedAvatars picks an avatar from a fixed local set by index.
type IndexedAvatars struct {
	Count int
}

func (ia IndexedAvatars) Identify(opts map[string]any) Identity {
	idx := 0
	if ia.Count > 0 {
		idx = int(sanitize.Number(opts["avatarIndex"], 0, 0, float64(ia.Count-1)))
	}
	return Identity{
		Username:    sanitize.Username(RequestedName(opts)),
		AvatarIndex: idx,
	}
}

// URLAvatars loads avatars from an allow-listed host and marks usernames
// with a prefix.
type URLAvatars struct {
	Prefix          string
	DefaultUsername string
	Avatar          sanitize.URLPolicy
}

func (ua URLAvatars) Identify(opts map[string]any) Identity {
	name := RequestedName(opts)
	if name == "" {
		name = ua.DefaultUsername
	}
	return Identity{
		Username:  ua.Prefix + sanitize.Username(name),
		AvatarURL: sanitize.URL(opts["avatarURL"], ua.Avatar),
	}
}

// RequestedName returns the raw username a client asked for, or "".
func RequestedName(opts map[string]any) string {
	for _, key := range []string{"username", "name"} {
		if s, ok := opts[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Capabilities is the behaviour that distinguishes one room variant from another.
type Capabilities struct {
	Variant           Variant
	Spawn             SpawnPolicy
	Identity          IdentityScheme
	Move              commands.MovePolicy
	FreeFormAnimation bool
	// ChatHistory is the number of chat messages kept in state. Zero keeps none.
	ChatHistory int
	// Interactions enables emotes and artwork viewing.
	Interactions bool
	// Moderation enables kickUser and banUser.
	Moderation bool
}

const (
	DefaultAvatarHost  = "models.readyplayer.me"
	DefaultAvatarURL   = "https://models.readyplayer.me/64bfa15f0e72c63d7c3934a6.glb"
	DefaultAvatarCount = 4
	DefaultChatHistory = 50
	DefaultWorldBound  = 1000
)

var DefaultSpawnPoints = SpawnPoints{
	{X: -2, Y: 0, Z: 5},
	{X: 0, Y: 0, Z: 5},
	{X: 2, Y: 0, Z: 5},
}

// GalleryCapabilities is the player facing room.
func GalleryCapabilities() Capabilities {
	return Capabilities{
		Variant:      VariantGallery,
		Spawn:        DefaultSpawnPoints,
		Identity:     IndexedAvatars{Count: DefaultAvatarCount},
		Move:         commands.MovePolicy{TrackSpeed: true, Bound: DefaultWorldBound},
		ChatHistory:  DefaultChatHistory,
		Interactions: true,
	}
}

// AdminCapabilities is the privileged moderation room.
func AdminCapabilities() Capabilities {
	return Capabilities{
		Variant: VariantAdmin,
		Spawn:   SpawnRadius(5),
		Identity: URLAvatars{
			Prefix:          "[ADMIN] ",
			DefaultUsername: "Admin",
			Avatar: sanitize.URLPolicy{
				Host:      DefaultAvatarHost,
				Extension: ".glb",
				Default:   DefaultAvatarURL,
			},
		},
		Move:              commands.MovePolicy{Bound: DefaultWorldBound},
		FreeFormAnimation: true,
		Moderation:        true,
	}
}

// Handlers builds the message handlers for these capabilities.
func (c Capabilities) Handlers(mod commands.Moderator) map[string]commands.HandlerFunc {
	h := map[string]commands.HandlerFunc{
		commands.MessageMove:      commands.Move(c.Move),
		commands.MessageAnimation: commands.Animation(c.FreeFormAnimation),
		commands.MessageChat:      commands.Chat,
	}

	if c.Interactions {
		h[commands.MessageEmote] = commands.Emote
		h[commands.MessageViewArtwork] = commands.ViewArtwork
		h[commands.MessageStopViewing] = commands.StopViewing
	}

	if c.Moderation {
		h[commands.MessageKickUser] = commands.KickUser(mod)
		h[commands.MessageBanUser] = commands.BanUser(mod)
	}

	return h
}
