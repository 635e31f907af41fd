package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

const (
	defaultClockInterval = time.Second
	defaultPatchInterval = 50 * time.Millisecond
	minClockInterval     = 100 * time.Millisecond
)

type Config struct {
	ClockInterval string         `json:"clock_interval"`
	PatchInterval string         `json:"patch_interval"`
	Listener      ListenerConfig `json:"listener"`
	Nats          NatsConfig     `json:"nats"`
	Rooms         []RoomConfig   `json:"rooms"`
	Bans          BanConfig      `json:"bans"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if d, err := parseDuration(c.ClockInterval, defaultClockInterval); err != nil {
		el.Add(fmt.Errorf("parsing clock_interval: %w", err))
	} else if d < minClockInterval {
		el.Add(fmt.Errorf("clock_interval must be at least %s", minClockInterval))
	}

	if d, err := parseDuration(c.PatchInterval, defaultPatchInterval); err != nil {
		el.Add(fmt.Errorf("parsing patch_interval: %w", err))
	} else if d <= 0 {
		el.Add(fmt.Errorf("patch_interval must be positive"))
	}

	el.Add(c.Listener.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Bans.validate())

	seen := map[string]bool{}
	for i, r := range c.roomConfigs() {
		if err := r.validate(); err != nil {
			el.Add(fmt.Errorf("room %d: %w", i, err))
		}
		if seen[r.Name] {
			el.Add(fmt.Errorf("room %d: duplicate room name %q", i, r.Name))
		}
		seen[r.Name] = true
	}

	return el.Err()
}

func (c *Config) clockInterval() time.Duration {
	d, _ := parseDuration(c.ClockInterval, defaultClockInterval)
	return d
}

func (c *Config) patchInterval() time.Duration {
	d, _ := parseDuration(c.PatchInterval, defaultPatchInterval)
	return d
}

// roomConfigs returns the configured rooms, or the gallery and admin rooms
// when none are configured.
func (c *Config) roomConfigs() []RoomConfig {
	if len(c.Rooms) > 0 {
		return c.Rooms
	}
	return DefaultRooms()
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
