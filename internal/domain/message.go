package domain

import "time"

// Message is the canonical chat message record. It is produced either by
// the history loader (already confirmed) or by the send pipeline (starts
// optimistic with an empty MessageID and transitions exactly once to
// confirmed when the server echo or REST response arrives).
type Message struct {
	MessageID   string         `json:"messageId"`
	ClientID    string         `json:"clientId,omitempty"`
	RoomID      string         `json:"roomId"`
	SenderID    string         `json:"senderId"`
	SenderName  string         `json:"senderName,omitempty"`
	Text        string         `json:"text"`
	Timestamp   time.Time      `json:"timestamp"`
	ReplyTo     string         `json:"replyTo,omitempty"`
	Reply       *ReplySnapshot `json:"reply,omitempty"`
	Attachments []Attachment   `json:"attachments"`
	Seen        bool           `json:"seen,omitempty"`
}

// Confirmed reports whether the message carries a server identity.
func (m Message) Confirmed() bool {
	return m.MessageID != ""
}

// HasAttachments reports whether the message carries at least one attachment.
func (m Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// ReplySnapshot is a denormalized summary of a referenced message, stored
// on the reply so the renderer does not need a second fetch.
type ReplySnapshot struct {
	MessageID     string      `json:"messageId"`
	SenderID      string      `json:"senderId"`
	Text          string      `json:"text"`
	HasAttachment bool        `json:"hasAttachment"`
	Attachment    *Attachment `json:"attachment,omitempty"`
}

// Participant is a room member.
type Participant struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// Room is a conversation room. Owned by the room directory; read-only
// from the engine's perspective.
type Room struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}
