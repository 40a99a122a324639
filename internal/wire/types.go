// Package wire converts the gateway's inconsistently shaped chat payloads into
// canonical records. The backend emits several envelope styles and key aliases
// for the same logical fields, so every conversion here runs through explicit
// candidate-key chains instead of trusting a single schema.
package wire

import (
	"fmt"
	"time"
)

// LocalDraftPrefix marks message IDs minted client-side for optimistic sends.
// A message carrying this prefix has not been confirmed by the server yet.
const LocalDraftPrefix = "local-"

// SenderUnknown is the sentinel sender recorded when a payload omits one.
const SenderUnknown = "UNKNOWN"

// SenderSystem is the synthetic sender assigned to non-JSON frames.
const SenderSystem = "SYSTEM"

// Status is the client-local delivery state of a message. It is derived, never
// persisted, and only ever advances forward for the lifetime of the session.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var statusRank = map[Status]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Advance upgrades the status to next if next ranks higher. Downgrades are
// ignored so a stale read-cursor update can never regress a message.
func (s Status) Advance(next Status) Status {
	if statusRank[next] > statusRank[s] {
		return next
	}
	return s
}

// Message is the canonical post-normalization chat message.
type Message struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id"`
	SenderID    string       `json:"sender_id"`
	Body        string       `json:"body"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Status is client-local and excluded from serialization.
	Status Status `json:"-"`
}

// IsLocalDraft reports whether the message is an optimistic send that has not
// been reconciled against a server echo yet.
func (m Message) IsLocalDraft() bool {
	return len(m.ID) >= len(LocalDraftPrefix) && m.ID[:len(LocalDraftPrefix)] == LocalDraftPrefix
}

// Attachment is a normalized file reference attached to a message.
// Ordering within a message matches the order received from the server.
type Attachment struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
	ThumbURL  string `json:"thumb_url,omitempty"`
}

// ThreadType distinguishes 1:1 conversations from groups.
type ThreadType string

const (
	ThreadDirect ThreadType = "DIRECT"
	ThreadGroup  ThreadType = "GROUP"
)

// Thread is a conversation summary as shown in the inbox list.
type Thread struct {
	ID            string        `json:"id"`
	Name          string        `json:"name,omitempty"`
	Type          ThreadType    `json:"type"`
	Participants  []Participant `json:"participants,omitempty"`
	LastMessage   string        `json:"last_message,omitempty"`
	LastMessageAt time.Time     `json:"last_message_time,omitempty"`
	UnreadCount   int           `json:"unread_count"`
}

// DisplayName returns the thread name, falling back to "Direct Chat" for
// unnamed 1:1 conversations.
func (t Thread) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Type == ThreadGroup {
		return fmt.Sprintf("Group %s", t.ID)
	}
	return "Direct Chat"
}

// Participant is a member of a thread.
type Participant struct {
	EmployeeCode string `json:"employee_code"`
	FullName     string `json:"full_name"`
	Role         string `json:"role,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}
