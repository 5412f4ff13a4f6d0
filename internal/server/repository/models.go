package repository

import (
	"encoding/json"
	"time"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

// MessageModel is the GORM model for the messages table. Reply snapshots
// and attachments are stored as JSON blobs; sqlite has no native type for
// them and the server never queries inside them.
type MessageModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	RoomID      string    `gorm:"type:varchar(36);index;not null"`
	SenderID    string    `gorm:"type:varchar(36);index;not null"`
	SenderName  string    `gorm:"type:varchar(100)"`
	Text        string    `gorm:"type:text;not null"`
	Timestamp   time.Time `gorm:"index;not null"`
	ReplyTo     string    `gorm:"type:varchar(36)"`
	Reply       string    `gorm:"type:text"`
	Attachments string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() domain.Message {
	msg := domain.Message{
		MessageID:   m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		SenderName:  m.SenderName,
		Text:        m.Text,
		Timestamp:   m.Timestamp,
		ReplyTo:     m.ReplyTo,
		Attachments: []domain.Attachment{},
	}
	if m.Reply != "" {
		var snap domain.ReplySnapshot
		if err := json.Unmarshal([]byte(m.Reply), &snap); err == nil {
			msg.Reply = &snap
		}
	}
	if m.Attachments != "" {
		var atts []domain.Attachment
		if err := json.Unmarshal([]byte(m.Attachments), &atts); err == nil {
			msg.Attachments = atts
		}
	}
	return msg
}

// MessageToModel converts a domain Message to its GORM model.
func MessageToModel(msg domain.Message) *MessageModel {
	model := &MessageModel{
		ID:         msg.MessageID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
		ReplyTo:    msg.ReplyTo,
	}
	if msg.Reply != nil {
		if data, err := json.Marshal(msg.Reply); err == nil {
			model.Reply = string(data)
		}
	}
	if len(msg.Attachments) > 0 {
		if data, err := json.Marshal(msg.Attachments); err == nil {
			model.Attachments = string(data)
		}
	}
	return model
}

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// ParticipantModel is the GORM model for room membership.
type ParticipantModel struct {
	RoomID string `gorm:"type:varchar(36);primaryKey"`
	UserID string `gorm:"type:varchar(36);primaryKey;index"`
	Name   string `gorm:"type:varchar(100)"`
}

// TableName specifies the table name for ParticipantModel.
func (ParticipantModel) TableName() string {
	return "participants"
}
