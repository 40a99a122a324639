// Package inbox folds live gateway events and REST summaries into the thread
// list: ordering, unread counts, previews and read cursors. Thread identity
// is never mutated here, only derived summary fields.
package inbox

import (
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/averonhq/deskchat/internal/gateway"
	"github.com/averonhq/deskchat/internal/view"
	"github.com/averonhq/deskchat/internal/wire"
)

// State is the client's view of all conversations. It is written from the
// inbox socket's goroutine and read by the UI, so access is serialized.
type State struct {
	mu sync.Mutex

	selfID   string
	threads  map[string]*wire.Thread
	active   string
	peerRead map[string]string
	ownRead  map[string]string
	logger   zerolog.Logger
}

// NewState builds an empty inbox for the given user.
func NewState(selfID string, logger zerolog.Logger) *State {
	return &State{
		selfID:   selfID,
		threads:  make(map[string]*wire.Thread),
		peerRead: make(map[string]string),
		ownRead:  make(map[string]string),
		logger:   logger.With().Str("component", "inbox_state").Logger(),
	}
}

// SetThreads replaces the summaries with a fresh REST listing. Unread counts
// reported by the server win over locally accumulated ones.
func (s *State) SetThreads(threads []wire.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*wire.Thread, len(threads))
	for i := range threads {
		thread := threads[i]
		next[thread.ID] = &thread
	}
	s.threads = next
}

// SetActive marks the thread currently open on screen. Live messages for the
// active thread do not increment its unread count.
func (s *State) SetActive(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = threadID
	if thread, ok := s.threads[threadID]; ok {
		thread.UnreadCount = 0
	}
}

// Apply folds one inbox-socket event into the summaries. It reports whether
// anything changed so the UI can skip redundant redraws.
func (s *State) Apply(event gateway.Event) bool {
	switch event.Kind {
	case wire.KindMessage:
		if event.Message == nil {
			return false
		}
		return s.applyMessage(event.Message)
	case wire.KindRead:
		return s.applyRead(event.Payload)
	default:
		return false
	}
}

func (s *State) applyMessage(message *wire.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[message.ThreadID]
	if !ok {
		// First sighting of this conversation; a later REST refresh fills in
		// the name and participants.
		thread = &wire.Thread{ID: message.ThreadID, Type: wire.ThreadDirect}
		s.threads[message.ThreadID] = thread
		s.logger.Debug().Str("thread_id", message.ThreadID).Msg("thread discovered via live event")
	}

	thread.LastMessage = view.RenderBody(message.Body)
	if thread.LastMessage == "" && len(message.Attachments) > 0 {
		thread.LastMessage = message.Attachments[0].Filename
	}
	if !message.CreatedAt.IsZero() {
		thread.LastMessageAt = message.CreatedAt
	}

	if message.SenderID != s.selfID && message.ThreadID != s.active {
		thread.UnreadCount++
	}
	return true
}

// applyRead records a read receipt. Receipts from other parties advance the
// peer cursor used to mark our own messages as read; our own receipts echoed
// back advance the own-read cursor driving the unread separator.
func (s *State) applyRead(payload map[string]any) bool {
	message, ok := wire.NormalizeMessage(payload)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cursorID := message.ID
	if reader := message.SenderID; reader != "" && reader != wire.SenderUnknown && reader != s.selfID {
		s.peerRead[message.ThreadID] = maxCursor(s.peerRead[message.ThreadID], cursorID)
	} else {
		s.ownRead[message.ThreadID] = maxCursor(s.ownRead[message.ThreadID], cursorID)
	}
	return true
}

// MarkOwnRead advances the caller's own read cursor, typically after the REST
// mark-read call succeeds.
func (s *State) MarkOwnRead(threadID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownRead[threadID] = maxCursor(s.ownRead[threadID], messageID)
}

// PeerCursors returns a copy of the other-party read cursors, keyed by thread.
func (s *State) PeerCursors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.peerRead))
	for thread, cursor := range s.peerRead {
		out[thread] = cursor
	}
	return out
}

// OwnCursor returns the caller's last-read message id for a thread.
func (s *State) OwnCursor(threadID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownRead[threadID]
}

// Snapshot returns the thread summaries ordered by most recent activity.
func (s *State) Snapshot() []wire.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wire.Thread, 0, len(s.threads))
	for _, thread := range s.threads {
		out = append(out, *thread)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TotalUnread sums unread counts across all threads.
func (s *State) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, thread := range s.threads {
		total += thread.UnreadCount
	}
	return total
}

// maxCursor keeps the higher of two cursors; cursors never move backwards.
func maxCursor(current, candidate string) string {
	if current == "" {
		return candidate
	}
	if candidate == "" {
		return current
	}
	if cursorLess(current, candidate) {
		return candidate
	}
	return current
}

// cursorLess compares cursors numerically when both parse as numbers, so
// "9" orders before "100", and lexicographically otherwise.
func cursorLess(a, b string) bool {
	an, aerr := strconv.ParseFloat(a, 64)
	bn, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return a < b
}
