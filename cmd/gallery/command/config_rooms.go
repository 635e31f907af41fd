package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gallery/internal/room"
	"github.com/pixil98/go-gallery/internal/storage"
)

const (
	defaultGalleryClients = 50
	defaultAdminClients   = 3
)

type AvatarConfig struct {
	Host      string `json:"host"`
	Extension string `json:"extension"`
	Default   string `json:"default"`
}

type RoomConfig struct {
	Name            string         `json:"name"`
	Variant         room.Variant   `json:"variant"`
	MaxClients      int            `json:"max_clients"`
	AutoDispose     *bool          `json:"auto_dispose,omitempty"`
	WelcomeMessage  string         `json:"welcome_message"`
	ChatHistory     *int           `json:"chat_history,omitempty"`
	SpawnPoints     []room.Vec3    `json:"spawn_points"`
	SpawnRadius     float64        `json:"spawn_radius"`
	AvatarCount     int            `json:"avatar_count"`
	Avatar          AvatarConfig   `json:"avatar"`
	UsernamePrefix  *string        `json:"username_prefix,omitempty"`
	DefaultUsername string         `json:"default_username"`
	Metadata        map[string]any `json:"metadata"`
}

// DefaultRooms are hosted when the config lists none.
func DefaultRooms() []RoomConfig {
	return []RoomConfig{
		{Name: "gallery", Variant: room.VariantGallery},
		{Name: "admin_gallery", Variant: room.VariantAdmin},
	}
}

func (c *RoomConfig) validate() error {
	el := errors.NewErrorList()

	if c.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	} else if !storage.ValidIdentifier(c.Name) {
		el.Add(fmt.Errorf("name %q may only contain letters, digits, hyphens and underscores", c.Name))
	}
	if c.MaxClients < 0 {
		el.Add(fmt.Errorf("max_clients cannot be negative"))
	}
	if c.ChatHistory != nil && *c.ChatHistory < 0 {
		el.Add(fmt.Errorf("chat_history cannot be negative"))
	}
	if c.SpawnRadius < 0 {
		el.Add(fmt.Errorf("spawn_radius cannot be negative"))
	}
	if c.AvatarCount < 0 {
		el.Add(fmt.Errorf("avatar_count cannot be negative"))
	}
	if _, err := room.ParseWelcome(c.WelcomeMessage); err != nil {
		el.Add(fmt.Errorf("welcome_message: %w", err))
	}

	return el.Err()
}

func (c *RoomConfig) definition() room.Definition {
	def := room.Definition{
		Name:           c.Name,
		MaxClients:     c.MaxClients,
		AutoDispose:    true,
		Metadata:       c.Metadata,
		Capabilities:   c.capabilities(),
		WelcomeMessage: c.WelcomeMessage,
	}
	if c.AutoDispose != nil {
		def.AutoDispose = *c.AutoDispose
	}
	if def.MaxClients == 0 {
		def.MaxClients = defaultGalleryClients
		if c.Variant == room.VariantAdmin {
			def.MaxClients = defaultAdminClients
		}
	}
	return def
}

func (c *RoomConfig) capabilities() room.Capabilities {
	var caps room.Capabilities
	switch c.Variant {
	case room.VariantAdmin:
		caps = room.AdminCapabilities()
		caps.Identity = c.urlAvatars(caps.Identity)
	default:
		caps = room.GalleryCapabilities()
		if c.AvatarCount > 0 {
			caps.Identity = room.IndexedAvatars{Count: c.AvatarCount}
		}
	}

	if len(c.SpawnPoints) > 0 {
		caps.Spawn = room.SpawnPoints(c.SpawnPoints)
	} else if c.SpawnRadius > 0 {
		caps.Spawn = room.SpawnRadius(c.SpawnRadius)
	}
	if c.ChatHistory != nil {
		caps.ChatHistory = *c.ChatHistory
	}

	return caps
}

func (c *RoomConfig) urlAvatars(base room.IdentityScheme) room.IdentityScheme {
	ua, ok := base.(room.URLAvatars)
	if !ok {
		return base
	}

	if c.UsernamePrefix != nil {
		ua.Prefix = *c.UsernamePrefix
	}
	if c.DefaultUsername != "" {
		ua.DefaultUsername = c.DefaultUsername
	}
	if c.Avatar.Host != "" {
		ua.Avatar.Host = c.Avatar.Host
	}
	if c.Avatar.Extension != "" {
		ua.Avatar.Extension = c.Avatar.Extension
	}
	if c.Avatar.Default != "" {
		ua.Avatar.Default = c.Avatar.Default
	}
	return ua
}

func (c *Config) defineRooms(m *room.Manager) error {
	for _, rc := range c.roomConfigs() {
		if err := m.Define(rc.definition()); err != nil {
			return fmt.Errorf("defining room %q: %w", rc.Name, err)
		}
	}
	return nil
}
