package domain

import (
	"encoding/json"
	"time"
)

// Sanitizer converts any partial or untrusted message payload into a
// canonical Message. It never fails: missing or wrong-typed fields are
// coerced to safe defaults, an unparsable timestamp becomes "now". This
// isolates the rest of the engine from malformed payload shapes on either
// transport.
type Sanitizer struct {
	// FileBase is the file-serving base URL attachments resolve against.
	FileBase string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (s *Sanitizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sanitize converts a decoded payload into a canonical Message.
func (s *Sanitizer) Sanitize(raw map[string]interface{}) Message {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	m := Message{
		MessageID:  asString(raw["messageId"]),
		ClientID:   asString(raw["clientId"]),
		RoomID:     asString(raw["roomId"]),
		SenderID:   asString(raw["senderId"]),
		SenderName: asString(raw["senderName"]),
		Text:       asString(raw["text"]),
		Timestamp:  s.parseTimestamp(raw["timestamp"]),
		ReplyTo:    asString(raw["replyTo"]),
		Seen:       asBool(raw["seen"]),
	}

	if list, ok := raw["attachments"].([]interface{}); ok {
		m.Attachments = NormalizeAttachments(list, s.FileBase)
	} else {
		m.Attachments = []Attachment{}
	}

	if reply, ok := raw["reply"].(map[string]interface{}); ok {
		m.Reply = s.sanitizeReply(reply)
	}

	return m
}

// SanitizeJSON decodes and sanitizes a raw JSON payload. Undecodable input
// yields a Message built from an empty payload, never an error.
func (s *Sanitizer) SanitizeJSON(data []byte) Message {
	var raw map[string]interface{}
	_ = json.Unmarshal(data, &raw)
	return s.Sanitize(raw)
}

func (s *Sanitizer) sanitizeReply(raw map[string]interface{}) *ReplySnapshot {
	snap := &ReplySnapshot{
		MessageID:     asString(raw["messageId"]),
		SenderID:      asString(raw["senderId"]),
		Text:          asString(raw["text"]),
		HasAttachment: asBool(raw["hasAttachment"]),
	}
	if att, ok := raw["attachment"].(map[string]interface{}); ok {
		list := NormalizeAttachments([]interface{}{att}, s.FileBase)
		if len(list) == 1 {
			snap.Attachment = &list[0]
			snap.HasAttachment = true
		}
	}
	return snap
}

// parseTimestamp accepts RFC3339 strings and unix epoch numbers (seconds
// or milliseconds). Anything else normalizes to "now".
func (s *Sanitizer) parseTimestamp(v interface{}) time.Time {
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts
			}
		}
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t))
		}
		if t > 0 {
			return time.Unix(int64(t), 0)
		}
	case time.Time:
		return t
	}
	return s.now()
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func asFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
