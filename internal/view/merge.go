package view

import (
	"time"

	"github.com/averonhq/deskchat/internal/wire"
)

// echoWindow bounds how far apart a local draft and its server echo may sit
// in time and still be considered the same message. The transport carries no
// client correlation id, so matching is by thread+sender+body+proximity; this
// is a known duplicate risk under rapid identical sends (see DESIGN.md).
const echoWindow = 2 * time.Minute

// MergeEcho folds a server-confirmed message into the live slice. A matching
// local draft is replaced in place so the temporary and confirmed message
// never render as two bubbles; an already-known id is ignored; anything else
// is appended. The returned slice shares backing storage with messages.
func MergeEcho(messages []*wire.Message, echo *wire.Message) []*wire.Message {
	if echo == nil {
		return messages
	}
	if echo.Status == "" {
		echo.Status = wire.StatusDelivered
	}

	for i, existing := range messages {
		if existing == nil {
			continue
		}
		if existing.ID == echo.ID {
			// Duplicate push of a message we already hold; keep the first.
			return messages
		}
		if matchesDraft(existing, echo) {
			echo.Status = existing.Status.Advance(echo.Status)
			messages[i] = echo
			return messages
		}
	}

	return append(messages, echo)
}

func matchesDraft(draft, echo *wire.Message) bool {
	if !draft.IsLocalDraft() {
		return false
	}
	if draft.ThreadID != echo.ThreadID || draft.SenderID != echo.SenderID || draft.Body != echo.Body {
		return false
	}
	if draft.CreatedAt.IsZero() || echo.CreatedAt.IsZero() {
		return true
	}
	delta := echo.CreatedAt.Sub(draft.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= echoWindow
}
