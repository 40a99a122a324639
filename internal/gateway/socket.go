package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/observability"
	"github.com/averonhq/deskchat/internal/wire"
)

const (
	defaultHeartbeat = 25 * time.Second
	defaultBackoff   = time.Second
	defaultPollEvery = 2 * time.Second
)

// Event is a classified gateway frame delivered to the caller's handler.
// Message is populated only for KindMessage events.
type Event struct {
	Kind    wire.Kind
	Payload map[string]any
	Message *wire.Message
}

// Handler receives classified events. Handlers run on the socket's read
// goroutine; panics are contained and must not assume any ordering across
// different sockets.
type Handler func(Event)

// PollFunc is invoked by the inbox socket's polling fallback while the
// connection is down, so the caller can refresh summaries over REST.
type PollFunc func()

// socket is the shared connection core: dial, hello burst, heartbeat,
// exponential-backoff reconnect and teardown. Thread and inbox sockets are
// thin wrappers differing only in URL, hello payloads and poll fallback.
type socket struct {
	label     string
	url       string
	hello     []any
	handler   Handler
	heartbeat time.Duration
	backoff   time.Duration
	pollFn    PollFunc
	pollEvery time.Duration
	dialer    *websocket.Dialer
	logger    zerolog.Logger

	mu         sync.Mutex
	writeMu    sync.Mutex
	started    bool
	stopped    bool
	conn       *websocket.Conn
	open       bool
	attempt    int
	retryTimer *time.Timer
	hbStop     chan struct{}
	pollStop   chan struct{}
}

// Start opens the connection asynchronously. Calling Start twice is a no-op.
func (s *socket) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.connect()
}

// Stop tears the socket down: normal-closure close frame, all timers
// cancelled, retry counter reset. No reconnect attempt fires after Stop.
func (s *socket) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.open = false
	s.attempt = 0
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.stopPolling()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	s.logger.Debug().Str("socket", s.label).Msg("socket stopped")
}

// Attempts reports the current reconnect attempt counter. It resets to zero
// only after a successful open.
func (s *socket) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// IsOpen reports whether the connection is currently established.
func (s *socket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SendJSON writes v if the socket is currently open. The boolean means "the
// write was attempted", not delivery; confirmation comes from the server's
// own echo and read events.
func (s *socket) SendJSON(v any) bool {
	s.mu.Lock()
	conn := s.conn
	open := s.open
	s.mu.Unlock()

	if !open || conn == nil {
		return false
	}

	s.writeMu.Lock()
	err := conn.WriteJSON(v)
	s.writeMu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("socket", s.label).Msg("socket write failed, forcing close")
		// Force-close rather than leaving the connection ambiguous; the read
		// loop observes the closure and schedules the reconnect.
		_ = conn.Close()
		return false
	}
	return true
}

func (s *socket) connect() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	attempt := s.attempt
	s.mu.Unlock()

	s.logger.Debug().Str("socket", s.label).Int("attempt", attempt).Msg("dialing gateway")

	conn, resp, err := s.dialer.Dial(s.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("socket", s.label).Msg("gateway dial failed")
		s.startPolling()
		s.scheduleReconnect()
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.open = true
	s.attempt = 0
	hbStop := make(chan struct{})
	s.hbStop = hbStop
	s.mu.Unlock()

	s.stopPolling()
	observability.SocketConnects().WithLabelValues(s.label).Inc()
	s.logger.Info().Str("socket", s.label).Msg("gateway connected")

	// The gateway's expected handshake shape is not guaranteed, so broadcast
	// every plausible variant and let the server honor whichever it knows.
	for _, payload := range s.hello {
		s.SendJSON(payload)
	}

	go s.heartbeatLoop(hbStop)
	s.readLoop(conn)
}

func (s *socket) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			s.connectionClosed(conn, err)
			return
		}
		s.dispatch(frame)
	}
}

// dispatch unwraps, classifies and forwards a frame. It never panics outward:
// a failing handler would otherwise kill the read loop for the connection.
func (s *socket) dispatch(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("socket", s.label).Msg("event handler panicked")
		}
	}()

	payload := wire.UnwrapEvent(frame)
	kind := wire.Classify(payload)
	observability.SocketFrames().WithLabelValues(s.label, string(kind)).Inc()

	event := Event{Kind: kind, Payload: payload}
	if kind == wire.KindMessage {
		message, ok := wire.NormalizeMessage(payload)
		if !ok {
			// Malformed at the normalizer boundary: drop silently.
			s.logger.Debug().Str("socket", s.label).Msg("dropping message frame without thread id")
			return
		}
		event.Message = &message
	}

	if s.handler != nil {
		s.handler(event)
	}
}

func (s *socket) connectionClosed(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.conn != conn {
		// A Stop or newer connection already superseded this one.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.open = false
	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
	stopped := s.stopped
	s.mu.Unlock()

	_ = conn.Close()
	if stopped {
		return
	}

	s.logger.Warn().Err(err).Str("socket", s.label).Msg("gateway connection lost")
	s.startPolling()
	s.scheduleReconnect()
}

func (s *socket) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	delay := BackoffDelay(s.backoff, s.attempt)
	s.attempt++
	observability.SocketReconnects().WithLabelValues(s.label).Inc()
	s.logger.Debug().Str("socket", s.label).Dur("delay", delay).Int("attempt", s.attempt).Msg("reconnect scheduled")

	s.retryTimer = time.AfterFunc(delay, s.connect)
}

func (s *socket) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.SendJSON(map[string]any{"type": "ping", "at": time.Now().UnixMilli()}) {
				return
			}
		}
	}
}

func (s *socket) startPolling() {
	if s.pollFn == nil {
		return
	}

	s.mu.Lock()
	if s.stopped || s.pollStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.pollStop = stop
	s.mu.Unlock()

	s.logger.Info().Str("socket", s.label).Dur("every", s.pollEvery).Msg("polling fallback engaged")

	go func() {
		ticker := time.NewTicker(s.pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				observability.InboxPollTicks().Inc()
				s.pollFn()
			}
		}
	}()
}

func (s *socket) stopPolling() {
	s.mu.Lock()
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
	s.mu.Unlock()
}
