// Package view derives render state for an open thread: per-message delivery
// status, day grouping, header/avatar suppression and the first-unread
// boundary. Everything here is a pure transformation of the live message
// slice and the read-cursor map, so re-invoking it on every render is safe.
package view

import (
	"strconv"
	"time"

	"github.com/averonhq/deskchat/internal/wire"
)

// ItemKind discriminates timeline entries.
type ItemKind string

const (
	ItemDay     ItemKind = "DAY"
	ItemMessage ItemKind = "MSG"
)

// Item is one renderable timeline entry: either a day divider or a message
// bubble with its presentation flags.
type Item struct {
	Kind ItemKind

	// Day divider fields.
	Date time.Time

	// Message fields.
	Message    *wire.Message
	Mine       bool
	ShowHeader bool
	ShowAvatar bool
}

// Timeline is the derived render state for one thread.
type Timeline struct {
	Items []Item

	// FirstUnread is the index into Items of the first message the current
	// user has not read, or -1. It drives the one-time "Unread" separator on
	// thread open.
	FirstUnread int
}

// Build computes the timeline for the open thread.
//
// messages is the live ordered slice; peerCursors maps thread id to the
// highest message id the other party acknowledged reading; ownCursor is the
// current user's own last-read message id for this thread. The only input
// mutation is the idempotent Status backfill on messages authored by selfID.
func Build(messages []*wire.Message, peerCursors map[string]string, ownCursor string, selfID string) Timeline {
	applyStatuses(messages, peerCursors, selfID)

	timeline := Timeline{Items: make([]Item, 0, len(messages)+4), FirstUnread: -1}

	lastDay := ""
	lastSender := ""
	for _, message := range messages {
		if message == nil {
			continue
		}

		day := localDay(message.CreatedAt)
		if day != lastDay {
			timeline.Items = append(timeline.Items, Item{Kind: ItemDay, Date: startOfDay(message.CreatedAt)})
			lastDay = day
			// Headers and avatars always reappear after a day divider.
			lastSender = ""
		}

		mine := message.SenderID == selfID
		showHeader := message.SenderID != lastSender
		item := Item{
			Kind:       ItemMessage,
			Message:    message,
			Mine:       mine,
			ShowHeader: showHeader,
			ShowAvatar: showHeader && !mine,
		}

		if timeline.FirstUnread < 0 && !mine && !cursorCovers(ownCursor, message.ID) {
			timeline.FirstUnread = len(timeline.Items)
		}

		timeline.Items = append(timeline.Items, item)
		lastSender = message.SenderID
	}

	return timeline
}

// applyStatuses backfills and upgrades the client-local delivery status of the
// current user's own messages. Local drafts start as sending, everything else
// as delivered; the peer's read cursor upgrades to read. Safe to re-apply.
func applyStatuses(messages []*wire.Message, peerCursors map[string]string, selfID string) {
	for _, message := range messages {
		if message == nil || message.SenderID != selfID {
			continue
		}

		if message.Status == "" {
			if message.IsLocalDraft() {
				message.Status = wire.StatusSending
			} else {
				message.Status = wire.StatusDelivered
			}
		}

		if message.IsLocalDraft() {
			// Unconfirmed drafts cannot be covered by a server cursor.
			continue
		}
		if cursor, ok := peerCursors[message.ThreadID]; ok && cursorCovers(cursor, message.ID) {
			message.Status = message.Status.Advance(wire.StatusRead)
		}
	}
}

// cursorCovers reports whether cursor >= id. Both sides compare numerically
// when they parse as numbers; otherwise plain string comparison is the
// deterministic fallback.
func cursorCovers(cursor, id string) bool {
	if cursor == "" || id == "" {
		return false
	}
	cn, cerr := strconv.ParseFloat(cursor, 64)
	in, ierr := strconv.ParseFloat(id, 64)
	if cerr == nil && ierr == nil {
		return cn >= in
	}
	return cursor >= id
}

func localDay(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func startOfDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
