package domain

import "encoding/json"

// Push-channel frame types from client.
const (
	FrameJoinChat        = "joinChat"
	FrameSendChatMessage = "sendChatMessage"
)

// Push-channel frame types to client.
const (
	FrameChatMessage = "chatMessage"
	FrameError       = "error"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotInRoom     = "NOT_IN_ROOM"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseFrame is the base structure for all push-channel frames.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Server frames

type JoinChatFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type SendChatFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	ReplyTo   string `json:"replyTo,omitempty"`
	ClientID  string `json:"clientId"`
}

// Server -> Client frames

type ChatMessageFrame struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewChatMessageFrame wraps a confirmed message in its push frame.
func NewChatMessageFrame(msg Message) (*ChatMessageFrame, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &ChatMessageFrame{
		Type:    FrameChatMessage,
		RoomID:  msg.RoomID,
		Message: payload,
	}, nil
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    FrameError,
		Code:    code,
		Message: message,
	}
}
