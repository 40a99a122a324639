package wire

import (
	"encoding/json"
	"strings"
)

// Kind classifies an inbound gateway event after unwrapping.
type Kind string

const (
	KindMessage Kind = "message"
	KindTyping  Kind = "typing"
	KindRead    Kind = "read"
	KindMisc    Kind = "misc"
)

// envelopeKeys are merged from the envelope into the payload when the payload
// itself does not define them. Some gateway builds stamp sender and timing on
// the wrapper rather than the message body.
var envelopeKeys = []string{"senderId", "createdAt", "timestamp", "time", "id", "type", "event"}

// UnwrapEvent peels whichever envelope shape a gateway frame arrived in and
// returns the inner payload. Recognized wrappers are {type,data},
// {event,payload} and {message:{...}}; anything else is treated as a bare
// payload. The function is total: frames that do not parse as a JSON object
// come back as a synthetic system message carrying the raw text.
func UnwrapEvent(frame []byte) map[string]any {
	var decoded any
	if err := json.Unmarshal(frame, &decoded); err != nil {
		return systemPayload(string(frame))
	}

	raw, ok := decoded.(map[string]any)
	if !ok {
		// Valid JSON, but a scalar or array: keep the decoded value as text.
		return systemPayload(stringify(decoded))
	}

	inner := raw
	switch {
	case hasObject(raw, "data") && hasKey(raw, "type", "event"):
		inner = raw["data"].(map[string]any)
	case hasObject(raw, "payload") && hasKey(raw, "event", "type"):
		inner = raw["payload"].(map[string]any)
	case hasObject(raw, "message"):
		inner = raw["message"].(map[string]any)
	}

	if len(inner) == 0 {
		return raw
	}
	if sameMap(inner, raw) {
		return raw
	}

	merged := make(map[string]any, len(inner)+len(envelopeKeys))
	for key, value := range inner {
		merged[key] = value
	}
	for _, key := range envelopeKeys {
		if _, present := merged[key]; present {
			continue
		}
		if value, ok := raw[key]; ok && value != nil {
			merged[key] = value
		}
	}
	return merged
}

// Classify inspects the case-insensitive type/event marker of an unwrapped
// payload. Payloads with no usable marker still count as messages when they
// normalize into one; everything else is misc and forwarded to the caller
// rather than silently dropped.
func Classify(payload map[string]any) Kind {
	marker, _ := pickString(payload, "type", "event")
	lowered := strings.ToLower(marker)

	switch {
	case strings.Contains(lowered, "typing"):
		return KindTyping
	case strings.Contains(lowered, "read"):
		return KindRead
	case strings.HasPrefix(lowered, "message"):
		return KindMessage
	}

	if _, ok := NormalizeMessage(payload); ok {
		return KindMessage
	}
	return KindMisc
}

func systemPayload(body string) map[string]any {
	return map[string]any{"body": body, "sender_id": SenderSystem}
}

func hasObject(raw map[string]any, key string) bool {
	value, ok := raw[key]
	if !ok {
		return false
	}
	_, isMap := value.(map[string]any)
	return isMap
}

func hasKey(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return true
		}
	}
	return false
}

func sameMap(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if _, ok := b[key]; !ok {
			return false
		}
	}
	return true
}
