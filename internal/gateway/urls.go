// Package gateway maintains the client's WebSocket connections to the chat
// gateway: one socket per open thread plus one inbox-wide socket for the
// current user. Each socket is an isolated state machine owning its own
// connection handle, timers and retry counter.
package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	chatSocketPath = "/api/v1/ws/chat"
)

// ThreadSocketURL derives the per-thread WebSocket endpoint from the HTTP API
// base URL. https becomes wss, anything else ws; the token is appended as a
// query parameter when present. An unparseable base degrades to a
// host-relative URL rather than failing.
func ThreadSocketURL(httpBase, threadID, token string) string {
	return socketURL(httpBase, fmt.Sprintf("%s/%s", chatSocketPath, threadID), token)
}

// InboxSocketURL derives the inbox-wide WebSocket endpoint for the current
// user. Same scheme and token handling as ThreadSocketURL.
func InboxSocketURL(httpBase, token string) string {
	return socketURL(httpBase, chatSocketPath, token)
}

func socketURL(httpBase, path, token string) string {
	query := ""
	if token != "" {
		query = "?token=" + url.QueryEscape(token)
	}

	parsed, err := url.Parse(httpBase)
	if err != nil || parsed.Host == "" {
		return path + query
	}

	scheme := "ws"
	if strings.EqualFold(parsed.Scheme, "https") {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s%s%s", scheme, parsed.Host, path, query)
}
