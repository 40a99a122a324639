package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ThreadSocketConfig configures the connection for one open conversation.
type ThreadSocketConfig struct {
	// BaseURL is the HTTP API base; the ws endpoint is derived from it.
	BaseURL  string
	ThreadID string
	Token    string
	Handler  Handler
	Logger   zerolog.Logger

	// Heartbeat defaults to 25s, Backoff to a 1s base. Overridable for tests.
	Heartbeat time.Duration
	Backoff   time.Duration
	Dialer    *websocket.Dialer
}

// ThreadSocket manages the WebSocket scoped to a single open thread. It owns
// its own timers and retry counter; switching threads means stopping this
// socket and starting a fresh one.
type ThreadSocket struct {
	*socket
}

// NewThreadSocket builds a thread-scoped socket. Call Start to connect and
// Stop when the thread is closed or switched away from.
func NewThreadSocket(cfg ThreadSocketConfig) *ThreadSocket {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	return &ThreadSocket{socket: &socket{
		label:     "thread",
		url:       ThreadSocketURL(cfg.BaseURL, cfg.ThreadID, cfg.Token),
		hello:     joinPayloads(cfg.ThreadID),
		handler:   cfg.Handler,
		heartbeat: cfg.Heartbeat,
		backoff:   cfg.Backoff,
		dialer:    cfg.Dialer,
		logger:    cfg.Logger.With().Str("component", "thread_socket").Str("thread_id", cfg.ThreadID).Logger(),
	}}
}

// joinPayloads are the join-room handshake variants. The gateway's expected
// shape differs between deployments, so the client sends all of them and
// ignores which one was honored.
func joinPayloads(threadID string) []any {
	return []any{
		map[string]any{"type": "join", "thread_id": threadID},
		map[string]any{"action": "join", "thread_id": threadID},
		map[string]any{"type": "subscribe", "room_id": threadID},
		map[string]any{"event": "join", "room_id": threadID},
	}
}
