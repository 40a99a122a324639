package wire

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// pick returns the first candidate key present in raw with a non-nil value.
// Falsy-but-valid values (0, "", false) do not fall through; only a missing
// key or an explicit null moves resolution to the next candidate.
func pick(raw map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func pickString(raw map[string]any, keys ...string) (string, bool) {
	value, ok := pick(raw, keys...)
	if !ok {
		return "", false
	}
	return stringify(value), true
}

// pickText resolves like pickString but only accepts string values, so an
// alias that happens to hold an object (a nested "message" wrapper, say) is
// skipped instead of being stringified.
func pickText(raw map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			if s, isString := value.(string); isString {
				return s, true
			}
		}
	}
	return "", false
}

// stringify renders scalar identifiers the way the backend writes them:
// integers without an exponent, everything else via fmt.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func pickInt64(raw map[string]any, keys ...string) (int64, bool) {
	value, ok := pick(raw, keys...)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// parseTime accepts the timestamp shapes seen on the wire: numeric epoch
// milliseconds, RFC3339 strings, and the backend's space-separated variant.
// Unparseable input yields the zero time so normalization stays deterministic.
func parseTime(value any) time.Time {
	switch v := value.(type) {
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// NormalizeMessage converts a raw payload into a canonical Message. It returns
// false when raw carries no resolvable thread id; such frames are dropped at
// this boundary and never reach rendering.
func NormalizeMessage(raw map[string]any) (Message, bool) {
	if raw == nil {
		return Message{}, false
	}

	threadID, ok := pickString(raw, "thread_id", "threadId", "room_id", "roomId", "thread")
	if !ok || threadID == "" {
		return Message{}, false
	}

	senderID, ok := pickString(raw, "sender_id", "senderId", "employee_code", "employeeCode", "sender", "from", "user_id", "userId")
	if !ok || senderID == "" {
		senderID = SenderUnknown
	}

	body, _ := pickText(raw, "body", "text", "content", "message")

	createdAt := time.Time{}
	if value, ok := pick(raw, "created_at", "createdAt", "timestamp", "time", "sent_at", "date"); ok {
		createdAt = parseTime(value)
	}

	id, ok := pickString(raw, "id", "message_id", "messageId", "_id")
	if !ok || id == "" {
		// Deterministic synthesis keeps repeated normalization of the same
		// raw event idempotent.
		id = fmt.Sprintf("%s:%s:%d", threadID, senderID, createdAt.UnixMilli())
	}

	message := Message{
		ID:        id,
		ThreadID:  threadID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: createdAt,
	}

	if value, ok := pick(raw, "attachments", "files", "media"); ok {
		if list, ok := value.([]any); ok {
			for _, entry := range list {
				if m, ok := entry.(map[string]any); ok {
					message.Attachments = append(message.Attachments, NormalizeAttachment(m))
				}
			}
		}
	}

	return message, true
}

// NormalizeAttachment resolves the attachment key aliases used across the
// backend's upload and message endpoints.
func NormalizeAttachment(raw map[string]any) Attachment {
	attachment := Attachment{}
	attachment.ID, _ = pickString(raw, "id", "attachment_id", "attachmentId", "_id")
	attachment.Filename, _ = pickString(raw, "filename", "file_name", "name")
	attachment.MimeType, _ = pickString(raw, "mime_type", "mimetype", "content_type", "contentType")
	attachment.SizeBytes, _ = pickInt64(raw, "size_bytes", "size", "file_size", "fileSize")
	attachment.URL, _ = pickString(raw, "url", "link", "file_url", "fileUrl")
	attachment.ThumbURL, _ = pickString(raw, "thumb_url", "thumbnail", "thumbnail_url", "thumbnailUrl")
	return attachment
}

// NormalizeThread converts a raw thread summary from the REST listing into the
// canonical Thread, tolerating the same alias style as the socket layer.
func NormalizeThread(raw map[string]any) (Thread, bool) {
	if raw == nil {
		return Thread{}, false
	}

	id, ok := pickString(raw, "id", "thread_id", "threadId", "room_id", "roomId")
	if !ok || id == "" {
		return Thread{}, false
	}

	thread := Thread{ID: id, Type: ThreadDirect}
	thread.Name, _ = pickString(raw, "name", "title", "group_name", "groupName")
	thread.LastMessage, _ = pickString(raw, "last_message", "lastMessage", "preview")
	if value, ok := pick(raw, "last_message_time", "last_message_at", "lastMessageTime", "updated_at", "updatedAt"); ok {
		thread.LastMessageAt = parseTime(value)
	}
	if n, ok := pickInt64(raw, "unread_count", "unreadCount", "unread"); ok {
		thread.UnreadCount = int(n)
	}

	if kind, ok := pickString(raw, "type", "thread_type", "chat_type"); ok && strings.Contains(strings.ToLower(kind), "group") {
		thread.Type = ThreadGroup
	}
	if value, ok := pick(raw, "is_group", "isGroup"); ok {
		if b, ok := value.(bool); ok && b {
			thread.Type = ThreadGroup
		}
	}

	if value, ok := pick(raw, "participants", "members", "users"); ok {
		if list, ok := value.([]any); ok {
			for _, entry := range list {
				if m, ok := entry.(map[string]any); ok {
					if p, ok := NormalizeParticipant(m); ok {
						thread.Participants = append(thread.Participants, p)
					}
				}
			}
		}
	}

	return thread, true
}

// NormalizeParticipant resolves a roster entry. Entries without any usable
// identifier are skipped.
func NormalizeParticipant(raw map[string]any) (Participant, bool) {
	code, ok := pickString(raw, "employee_code", "employeeCode", "user_id", "userId", "id")
	if !ok || code == "" {
		return Participant{}, false
	}

	participant := Participant{EmployeeCode: code}
	participant.FullName, _ = pickString(raw, "full_name", "fullName", "name", "username")
	participant.Role, _ = pickString(raw, "role", "designation")
	if value, ok := pick(raw, "is_admin", "isAdmin", "admin"); ok {
		if b, ok := value.(bool); ok {
			participant.IsAdmin = b
		}
	}
	return participant, true
}
