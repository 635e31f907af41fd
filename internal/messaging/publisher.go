package messaging

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

const (
	subjectEvent      = "event"
	subjectDisconnect = "disconnect"
)

// Bus is the publish/subscribe transport under NatsPublisher.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(subject string, data []byte)) (func(), error)
}

// SessionHandler receives what a room sends to one session.
type SessionHandler interface {
	// Deliver is called with an encoded event envelope.
	Deliver(data []byte)
	// Close is called when the session should be disconnected.
	Close(reason string)
}

// NatsPublisher routes room output to per-session subjects. Events and
// disconnects for one session share a subscription so they arrive in the
// order they were sent.
type NatsPublisher struct {
	bus Bus
}

func NewNatsPublisher(bus Bus) *NatsPublisher {
	return &NatsPublisher{bus: bus}
}

func sessionSubject(sessionId string, kind string) string {
	return fmt.Sprintf("session.%s.%s", sessionId, kind)
}

// Publish sends data to every listed session.
func (p *NatsPublisher) Publish(sessionIds []string, data []byte) error {
	el := errors.NewErrorList()
	for _, id := range sessionIds {
		if err := p.bus.Publish(sessionSubject(id, subjectEvent), data); err != nil {
			el.Add(fmt.Errorf("publishing to %s: %w", id, err))
		}
	}
	return el.Err()
}

// Disconnect asks whoever holds the session's connection to close it.
func (p *NatsPublisher) Disconnect(sessionId string, reason string) error {
	return p.bus.Publish(sessionSubject(sessionId, subjectDisconnect), []byte(reason))
}

// SubscribeSession delivers the session's traffic to h until the returned
// function is called.
func (p *NatsPublisher) SubscribeSession(sessionId string, h SessionHandler) (func(), error) {
	return p.bus.Subscribe(sessionSubject(sessionId, "*"), func(subject string, data []byte) {
		switch subject[strings.LastIndexByte(subject, '.')+1:] {
		case subjectEvent:
			h.Deliver(data)
		case subjectDisconnect:
			h.Close(string(data))
		}
	})
}
