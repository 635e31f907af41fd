package listener

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-gallery/internal/room"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256

	// Close frame payloads are limited to 125 bytes, two of which are the code.
	maxCloseReason = 123
)

// connection pumps one websocket to and from the room it joined.
type connection struct {
	sessionId string
	room      *room.Room
	ws        *websocket.Conn
	host      RoomHost
	limiter   *rate.Limiter

	send chan []byte

	closeOnce   sync.Once
	closed      chan struct{}
	closeCode   int
	closeReason string

	leaveOnce sync.Once
}

func newConnection(sessionId string, rm *room.Room, ws *websocket.Conn, host RoomHost, limiter *rate.Limiter) *connection {
	return &connection{
		sessionId: sessionId,
		room:      rm,
		ws:        ws,
		host:      host,
		limiter:   limiter,
		send:      make(chan []byte, sendBufferSize),
		closed:    make(chan struct{}),
	}
}

// Deliver queues an encoded event for the client. A client that cannot keep
// up is disconnected rather than silently missing state.
func (c *connection) Deliver(data []byte) {
	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.send <- data:
	default:
		c.closeWith(websocket.ClosePolicyViolation, "send buffer full")
	}
}

// Close disconnects the client after everything already delivered is written.
func (c *connection) Close(reason string) {
	c.closeWith(websocket.CloseNormalClosure, reason)
}

func (c *connection) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		if len(reason) > maxCloseReason {
			reason = reason[:maxCloseReason]
		}
		c.closeCode = code
		c.closeReason = reason
		close(c.closed)
	})
}

// abort closes a connection whose pumps never started.
func (c *connection) abort(reason string) {
	c.closeWith(websocket.CloseTryAgainLater, reason)
	c.writeClose()
	_ = c.ws.Close()
	c.leave(false)
}

func (c *connection) leave(consented bool) {
	c.leaveOnce.Do(func() {
		c.host.Leave(c.sessionId, consented)
	})
}

func (c *connection) readPump(ctx context.Context, maxMessageBytes int64) {
	consented := false
	defer func() {
		c.closeWith(websocket.CloseNormalClosure, "")
		c.leave(consented)
		slog.InfoContext(ctx, "client disconnected", "room", c.room.Id(), "session", c.sessionId, "consented", consented)
	}()

	c.ws.SetReadLimit(maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			consented = websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "reading websocket", "session", c.sessionId, "error", err)
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		if !c.limiter.Allow() {
			slog.DebugContext(ctx, "dropping rate limited message", "session", c.sessionId)
			continue
		}

		var msg room.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			slog.DebugContext(ctx, "dropping malformed message", "session", c.sessionId, "error", err)
			continue
		}

		if !c.room.Dispatch(c.sessionId, msg.Type, msg.Data) {
			return
		}
	}
}

func (c *connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				slog.DebugContext(ctx, "writing websocket", "session", c.sessionId, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.flush()
			c.writeClose()
			return

		case <-c.room.Done():
			c.closeWith(websocket.CloseGoingAway, "room disposed")
			c.flush()
			c.writeClose()
			return

		case <-ctx.Done():
			c.closeWith(websocket.CloseGoingAway, "server shutting down")
			c.writeClose()
			return
		}
	}
}

// flush writes whatever is already queued so a kick notice reaches the
// client before its connection closes.
func (c *connection) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *connection) write(msgType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(msgType, data)
}

func (c *connection) writeClose() {
	msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
