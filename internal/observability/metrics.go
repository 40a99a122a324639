// Package observability exposes the Prometheus collectors instrumenting the
// chat client: socket lifecycle, frame traffic, the inbox polling fallback,
// outbound sends and the local cache.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce     sync.Once
	socketConnects   *prometheus.CounterVec
	socketReconnects *prometheus.CounterVec
	socketFrames     *prometheus.CounterVec
	inboxPollTicks   prometheus.Counter
	messagesSent     prometheus.Counter
	cacheReads       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the client.
func RegisterMetrics() {
	registerOnce.Do(func() {
		socketConnects = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_socket_connects_total",
			Help: "Successful gateway socket opens, by socket scope.",
		}, []string{"socket"})

		socketReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_socket_reconnects_total",
			Help: "Reconnect attempts scheduled after a connection loss.",
		}, []string{"socket"})

		socketFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_socket_frames_total",
			Help: "Inbound gateway frames by socket scope and classified kind.",
		}, []string{"socket", "kind"})

		inboxPollTicks = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_inbox_poll_ticks_total",
			Help: "REST polling-fallback ticks fired while the inbox socket was down.",
		})

		messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages submitted through the composer send path.",
		})

		cacheReads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_cache_reads_total",
			Help: "Local history cache reads by result.",
		}, []string{"result"})

		prometheus.MustRegister(socketConnects, socketReconnects, socketFrames, inboxPollTicks, messagesSent, cacheReads)
	})
}

// SocketConnects exposes the counter for successful socket opens.
func SocketConnects() *prometheus.CounterVec {
	RegisterMetrics()
	return socketConnects
}

// SocketReconnects exposes the counter for scheduled reconnects.
func SocketReconnects() *prometheus.CounterVec {
	RegisterMetrics()
	return socketReconnects
}

// SocketFrames exposes the counter for inbound frames.
func SocketFrames() *prometheus.CounterVec {
	RegisterMetrics()
	return socketFrames
}

// InboxPollTicks exposes the counter for polling-fallback ticks.
func InboxPollTicks() prometheus.Counter {
	RegisterMetrics()
	return inboxPollTicks
}

// MessagesSent exposes the counter for composer sends.
func MessagesSent() prometheus.Counter {
	RegisterMetrics()
	return messagesSent
}

// CacheReads exposes the counter for local cache reads.
func CacheReads() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheReads
}
