package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// InboxSocketConfig configures the user-scoped socket that feeds the thread
// list with live updates across all conversations.
type InboxSocketConfig struct {
	BaseURL      string
	Token        string
	EmployeeCode string
	Handler      Handler
	Logger       zerolog.Logger

	// Poll is invoked every PollInterval while the socket is down so the
	// caller can re-fetch thread summaries over REST. The poll loop stops as
	// soon as the socket reopens.
	Poll         PollFunc
	PollInterval time.Duration

	Heartbeat time.Duration
	Backoff   time.Duration
	Dialer    *websocket.Dialer
}

// InboxSocket is the inbox-wide connection. Lifecycle and backoff match
// ThreadSocket; the difference is user scope and the polling fallback.
type InboxSocket struct {
	*socket
}

// NewInboxSocket builds the inbox socket for the current user.
func NewInboxSocket(cfg InboxSocketConfig) *InboxSocket {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollEvery
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	return &InboxSocket{socket: &socket{
		label:     "inbox",
		url:       InboxSocketURL(cfg.BaseURL, cfg.Token),
		hello:     subscribePayloads(cfg.EmployeeCode),
		handler:   cfg.Handler,
		heartbeat: cfg.Heartbeat,
		backoff:   cfg.Backoff,
		pollFn:    cfg.Poll,
		pollEvery: cfg.PollInterval,
		dialer:    cfg.Dialer,
		logger:    cfg.Logger.With().Str("component", "inbox_socket").Logger(),
	}}
}

// subscribePayloads are the "all my threads" subscription variants, mirroring
// the join burst on thread sockets.
func subscribePayloads(employeeCode string) []any {
	return []any{
		map[string]any{"type": "subscribe", "scope": "all"},
		map[string]any{"action": "subscribe", "employee_code": employeeCode},
		map[string]any{"type": "join", "scope": "inbox"},
		map[string]any{"event": "subscribe", "user_id": employeeCode},
	}
}
