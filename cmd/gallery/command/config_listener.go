package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gallery/internal/directory"
	"github.com/pixil98/go-gallery/internal/listener"
)

const defaultPort = 2567

type RateLimitConfig struct {
	MessagesPerSecond float64 `json:"messages_per_second"`
	Burst             int     `json:"burst"`
}

type ListenerConfig struct {
	Port            int             `json:"port"`
	AllowedOrigins  []string        `json:"allowed_origins"`
	MaxMessageBytes int64           `json:"max_message_bytes"`
	RateLimit       RateLimitConfig `json:"rate_limit"`
}

func (c *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if c.Port < 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("listener: port %d out of range", c.Port))
	}
	if c.MaxMessageBytes < 0 {
		el.Add(fmt.Errorf("listener: max_message_bytes cannot be negative"))
	}
	if c.RateLimit.MessagesPerSecond < 0 {
		el.Add(fmt.Errorf("listener: rate_limit.messages_per_second cannot be negative"))
	}
	if c.RateLimit.Burst < 0 {
		el.Add(fmt.Errorf("listener: rate_limit.burst cannot be negative"))
	}

	return el.Err()
}

func (c *ListenerConfig) port() int {
	if c.Port == 0 {
		return defaultPort
	}
	return c.Port
}

func (c *ListenerConfig) buildListener(
	rooms listener.RoomHost,
	sessions listener.SessionSubscriber,
	dir *directory.Service,
	waitFor func(context.Context) error,
) *listener.WebSocketListener {
	opts := []listener.WebSocketListenerOpt{
		listener.WithAllowedOrigins(c.AllowedOrigins...),
		listener.WithWaitFor(waitFor),
	}
	if c.MaxMessageBytes > 0 {
		opts = append(opts, listener.WithMaxMessageBytes(c.MaxMessageBytes))
	}
	if c.RateLimit.MessagesPerSecond > 0 {
		burst := c.RateLimit.Burst
		if burst == 0 {
			burst = int(2 * c.RateLimit.MessagesPerSecond)
		}
		opts = append(opts, listener.WithRateLimit(c.RateLimit.MessagesPerSecond, max(burst, 1)))
	}

	return listener.NewWebSocketListener(c.port(), rooms, sessions, dir, opts...)
}
