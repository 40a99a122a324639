package wire_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/wire"
)

func TestNormalizeMessageIsIdempotent(t *testing.T) {
	raw := map[string]any{
		"thread_id": float64(7),
		"sender_id": "E42",
		"body":      "hello",
		"timestamp": float64(1700000000000),
	}

	first, ok := wire.NormalizeMessage(raw)
	require.True(t, ok)
	second, ok := wire.NormalizeMessage(raw)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestNormalizeMessageSynthesizesStableID(t *testing.T) {
	raw := map[string]any{
		"thread_id":  "t-9",
		"sender_id":  "E1",
		"body":       "no id here",
		"created_at": float64(1700000000000),
	}

	first, ok := wire.NormalizeMessage(raw)
	require.True(t, ok)
	require.NotEmpty(t, first.ID)

	second, _ := wire.NormalizeMessage(raw)
	require.Equal(t, first.ID, second.ID)
}

func TestNormalizeMessageDropsPayloadWithoutThread(t *testing.T) {
	_, ok := wire.NormalizeMessage(map[string]any{"sender_id": "E1", "body": "orphan"})
	require.False(t, ok)

	_, ok = wire.NormalizeMessage(nil)
	require.False(t, ok)
}

func TestNormalizeMessageThreadAliasPriority(t *testing.T) {
	for _, alias := range []string{"thread_id", "threadId", "room_id", "roomId", "thread"} {
		raw := map[string]any{alias: "t-1", "sender_id": "E1", "body": "x"}
		message, ok := wire.NormalizeMessage(raw)
		require.True(t, ok, "alias %s", alias)
		require.Equal(t, "t-1", message.ThreadID, "alias %s", alias)
	}

	// Earlier candidates win even when a later alias is also present.
	message, ok := wire.NormalizeMessage(map[string]any{
		"thread_id": "primary",
		"room_id":   "secondary",
		"sender_id": "E1",
	})
	require.True(t, ok)
	require.Equal(t, "primary", message.ThreadID)
}

func TestNormalizeMessageKeepsFalsyValues(t *testing.T) {
	message, ok := wire.NormalizeMessage(map[string]any{
		"thread_id": float64(0),
		"sender_id": "E1",
		"body":      "",
		"text":      "must not be used",
	})
	require.True(t, ok)
	require.Equal(t, "0", message.ThreadID)
	require.Equal(t, "", message.Body)
}

func TestNormalizeMessageNullFallsThroughToNextAlias(t *testing.T) {
	message, ok := wire.NormalizeMessage(map[string]any{
		"thread_id": nil,
		"room_id":   "t-3",
		"body":      nil,
		"text":      "fallback body",
		"sender_id": nil,
	})
	require.True(t, ok)
	require.Equal(t, "t-3", message.ThreadID)
	require.Equal(t, "fallback body", message.Body)
	require.Equal(t, wire.SenderUnknown, message.SenderID)
}

func TestNormalizeMessageNumericTimestamp(t *testing.T) {
	message, ok := wire.NormalizeMessage(map[string]any{
		"thread_id": float64(1),
		"sender_id": "E1",
		"body":      "hi",
		"timestamp": float64(1700000000000),
	})
	require.True(t, ok)
	require.Equal(t, time.UnixMilli(1700000000000).UTC(), message.CreatedAt)
}

func TestNormalizeMessageParsesRFC3339(t *testing.T) {
	message, ok := wire.NormalizeMessage(map[string]any{
		"thread_id":  "t",
		"sender_id":  "E1",
		"created_at": "2023-11-14T22:13:20Z",
	})
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), message.CreatedAt.UTC())
}

func TestNormalizeAttachmentAliases(t *testing.T) {
	attachment := wire.NormalizeAttachment(map[string]any{
		"name":     "a.pdf",
		"mimetype": "application/pdf",
		"size":     float64(1024),
		"link":     "https://x/a.pdf",
	})

	require.Equal(t, wire.Attachment{
		Filename:  "a.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 1024,
		URL:       "https://x/a.pdf",
	}, attachment)
}

func TestNormalizeAttachmentCanonicalKeysMatchAliases(t *testing.T) {
	canonical := wire.NormalizeAttachment(map[string]any{
		"filename":   "b.png",
		"mime_type":  "image/png",
		"size_bytes": float64(0),
		"url":        "https://x/b.png",
		"thumb_url":  "https://x/b-thumb.png",
	})
	aliased := wire.NormalizeAttachment(map[string]any{
		"name":      "b.png",
		"mimetype":  "image/png",
		"size":      float64(0),
		"link":      "https://x/b.png",
		"thumbnail": "https://x/b-thumb.png",
	})
	require.Equal(t, canonical, aliased)
	require.Equal(t, int64(0), canonical.SizeBytes)
}

func TestNormalizeMessageCollectsAttachmentsInOrder(t *testing.T) {
	message, ok := wire.NormalizeMessage(map[string]any{
		"thread_id": "t",
		"sender_id": "E1",
		"attachments": []any{
			map[string]any{"name": "first.txt", "link": "https://x/1"},
			map[string]any{"name": "second.txt", "link": "https://x/2"},
		},
	})
	require.True(t, ok)
	require.Len(t, message.Attachments, 2)
	require.Equal(t, "first.txt", message.Attachments[0].Filename)
	require.Equal(t, "second.txt", message.Attachments[1].Filename)
}

func TestNormalizeThread(t *testing.T) {
	thread, ok := wire.NormalizeThread(map[string]any{
		"thread_id":    float64(12),
		"title":        "Quarterly leads",
		"chat_type":    "group",
		"unread":       float64(3),
		"preview":      "see attached",
		"members": []any{
			map[string]any{"employee_code": "E1", "full_name": "A", "is_admin": true},
			map[string]any{"user_id": "E2", "name": "B"},
		},
	})
	require.True(t, ok)
	require.Equal(t, "12", thread.ID)
	require.Equal(t, "Quarterly leads", thread.Name)
	require.Equal(t, wire.ThreadGroup, thread.Type)
	require.Equal(t, 3, thread.UnreadCount)
	require.Equal(t, "see attached", thread.LastMessage)
	require.Len(t, thread.Participants, 2)
	require.True(t, thread.Participants[0].IsAdmin)
	require.Equal(t, "E2", thread.Participants[1].EmployeeCode)
}

func TestThreadDisplayNameFallsBackForDirectChats(t *testing.T) {
	require.Equal(t, "Direct Chat", wire.Thread{Type: wire.ThreadDirect}.DisplayName())
	require.Equal(t, "Leads", wire.Thread{Name: "Leads"}.DisplayName())
}

func TestStatusNeverRegresses(t *testing.T) {
	status := wire.StatusSending
	status = status.Advance(wire.StatusDelivered)
	require.Equal(t, wire.StatusDelivered, status)

	status = status.Advance(wire.StatusRead)
	require.Equal(t, wire.StatusRead, status)

	// A stale cursor update must not move the status backwards.
	status = status.Advance(wire.StatusDelivered)
	require.Equal(t, wire.StatusRead, status)
}
