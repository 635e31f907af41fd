package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pixil98/go-gallery/internal/directory"
	"github.com/pixil98/go-gallery/internal/messaging"
	"github.com/pixil98/go-gallery/internal/room"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxMessageBytes = 4096
	DefaultMessagesPerSec  = 30
	DefaultBurst           = 60

	shutdownTimeout = 5 * time.Second
)

// RoomHost hands out seats in rooms.
type RoomHost interface {
	JoinOrCreate(ctx context.Context, name string, sessionId string, opts map[string]any) (*room.Room, error)
	JoinById(ctx context.Context, roomId string, sessionId string, opts map[string]any) (*room.Room, error)
	Leave(sessionId string, consented bool)
}

// SessionSubscriber delivers room output for one session.
type SessionSubscriber interface {
	SubscribeSession(sessionId string, h messaging.SessionHandler) (func(), error)
}

type joinFunc func(ctx context.Context, target string, sessionId string, opts map[string]any) (*room.Room, error)

// WebSocketListener serves the websocket endpoints, the room directory and
// the health check on one HTTP port.
type WebSocketListener struct {
	port     int
	rooms    RoomHost
	sessions SessionSubscriber
	dir      *directory.Service

	allowedOrigins  []string
	maxMessageBytes int64
	rateLimit       rate.Limit
	burst           int
	waitFor         func(context.Context) error
	clock           func() time.Time
	started         time.Time

	upgrader websocket.Upgrader

	// Upgraded connections outlive their requests and stop with connCtx.
	connCtx     context.Context
	cancelConns context.CancelFunc
	wg          sync.WaitGroup
}

type WebSocketListenerOpt func(*WebSocketListener)

// WithAllowedOrigins restricts which browser origins may connect. An empty
// list or "*" allows every origin.
func WithAllowedOrigins(origins ...string) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.allowedOrigins = origins
	}
}

func WithMaxMessageBytes(n int64) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.maxMessageBytes = n
	}
}

// WithRateLimit caps inbound messages per connection. Excess messages are
// dropped.
func WithRateLimit(perSecond float64, burst int) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.rateLimit = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithWaitFor delays serving until fn returns, for dependencies that start
// alongside the listener.
func WithWaitFor(fn func(context.Context) error) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.waitFor = fn
	}
}

func NewWebSocketListener(port int, rooms RoomHost, sessions SessionSubscriber, dir *directory.Service, opts ...WebSocketListenerOpt) *WebSocketListener {
	l := &WebSocketListener{
		port:            port,
		rooms:           rooms,
		sessions:        sessions,
		dir:             dir,
		maxMessageBytes: DefaultMaxMessageBytes,
		rateLimit:       DefaultMessagesPerSec,
		burst:           DefaultBurst,
		clock:           time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.started = l.clock()
	l.connCtx, l.cancelConns = context.WithCancel(context.Background())
	l.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     l.checkOrigin,
	}

	return l
}

func (l *WebSocketListener) Start(ctx context.Context) error {
	if l.waitFor != nil {
		if err := l.waitFor(ctx); err != nil {
			return fmt.Errorf("waiting for dependencies: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", l.port),
		Handler:           l.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "websocket listener started", "port", l.port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		l.Close()
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("serving http on port %d: %w", l.port, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.WarnContext(ctx, "shutting down http server", "error", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	l.Close()

	slog.InfoContext(ctx, "websocket listener stopped")
	return nil
}

// Close disconnects every open websocket and waits for their sessions to end.
func (l *WebSocketListener) Close() {
	l.cancelConns()
	l.wg.Wait()
}

// Handler routes every endpoint the listener serves.
func (l *WebSocketListener) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", l.serveRoot)
	mux.HandleFunc("GET /health", l.serveHealth)
	mux.HandleFunc("GET /ws/{roomName}", func(w http.ResponseWriter, r *http.Request) {
		l.serveJoin(w, r, r.PathValue("roomName"), l.rooms.JoinOrCreate)
	})
	mux.HandleFunc("GET /ws/rooms/{roomId}", func(w http.ResponseWriter, r *http.Request) {
		l.serveJoin(w, r, r.PathValue("roomId"), l.rooms.JoinById)
	})
	directory.NewHandler(l.dir).Register(mux)

	return mux
}

func (l *WebSocketListener) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(l.allowedOrigins) == 0 {
		return true
	}
	return slices.Contains(l.allowedOrigins, "*") || slices.Contains(l.allowedOrigins, origin)
}

func (l *WebSocketListener) serveJoin(w http.ResponseWriter, r *http.Request, target string, join joinFunc) {
	ctx := r.Context()
	sessionId := uuid.NewString()
	opts := joinOptions(r)

	rm, err := join(ctx, target, sessionId, opts)
	if err != nil {
		status := joinStatus(err)
		slog.InfoContext(ctx, "join refused", "target", target, "status", status, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.WarnContext(ctx, "upgrading connection", "error", err)
		l.rooms.Leave(sessionId, false)
		return
	}

	c := newConnection(sessionId, rm, ws, l.rooms, rate.NewLimiter(l.rateLimit, l.burst))

	unsubscribe, err := l.sessions.SubscribeSession(sessionId, c)
	if err != nil {
		slog.ErrorContext(ctx, "subscribing session", "session", sessionId, "error", err)
		c.abort("server error")
		return
	}

	if err := rm.Join(sessionId, opts); err != nil {
		slog.WarnContext(ctx, "joining room", "room", rm.Id(), "session", sessionId, "error", err)
		unsubscribe()
		c.abort("room unavailable")
		return
	}

	slog.InfoContext(ctx, "client connected", "room", rm.Id(), "session", sessionId, "remote", r.RemoteAddr)

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		c.writePump(l.connCtx)
	}()
	go func() {
		defer l.wg.Done()
		defer unsubscribe()
		c.readPump(l.connCtx, l.maxMessageBytes)
	}()
}

// joinOptions reads the client's join options from the query string.
func joinOptions(r *http.Request) map[string]any {
	opts := map[string]any{}
	q := r.URL.Query()
	for _, key := range []string{"username", "name", "avatarURL", "avatarIndex"} {
		if q.Has(key) {
			opts[key] = q.Get(key)
		}
	}
	return opts
}

func joinStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomFull), errors.Is(err, room.ErrRoomDisposed):
		return http.StatusServiceUnavailable
	case errors.Is(err, room.ErrRoomLocked):
		return http.StatusLocked
	case errors.Is(err, room.ErrBanned):
		return http.StatusForbidden
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrUnknownRoomType):
		return http.StatusNotFound
	case errors.Is(err, room.ErrSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type healthResponse struct {
	Status     string  `json:"status"`
	Uptime     float64 `json:"uptime"`
	Timestamp  int64   `json:"timestamp"`
	TotalRooms int     `json:"totalRooms"`
	Port       int     `json:"port"`
}

func (l *WebSocketListener) serveHealth(w http.ResponseWriter, r *http.Request) {
	now := l.clock()
	writeJSON(w, r, healthResponse{
		Status:     "ok",
		Uptime:     now.Sub(l.started).Seconds(),
		Timestamp:  now.UnixMilli(),
		TotalRooms: l.dir.TotalRooms(),
		Port:       l.port,
	})
}

func (l *WebSocketListener) serveRoot(w http.ResponseWriter, r *http.Request) {
	scheme := "ws://"
	if r.TLS != nil {
		scheme = "wss://"
	}
	writeJSON(w, r, map[string]any{
		"message": "Gallery Multiplayer Server",
		"status":  "running",
		"endpoints": map[string]string{
			"health":    "/health",
			"api":       "/api/rooms",
			"websocket": scheme + r.Host + "/ws/{roomName}",
		},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "writing response", "path", r.URL.Path, "error", err)
	}
}
