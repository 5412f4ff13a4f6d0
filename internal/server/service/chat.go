// Package service holds the chat server's business logic, shared by the
// REST handlers and the websocket handler so both transports produce the
// same persisted messages and room echoes.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/repository"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/seen"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

const (
	// DefaultHistoryLimit applies when the client does not ask for a
	// specific count.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps a single history page.
	MaxHistoryLimit = 200
)

// Validation errors surfaced to handlers.
var (
	ErrEmptyMessage    = errors.New("message has no text and no attachments")
	ErrMissingSender   = errors.New("senderId is required")
	ErrRoomNotFound    = repository.ErrRoomNotFound
	ErrNoFilesAttached = errors.New("at least one file is required")
)

// Broadcaster pushes a frame to every websocket member of a room.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{}) error
}

// SendInput carries everything a text send needs, from either transport.
type SendInput struct {
	RoomID    string
	SenderID  string
	Text      string
	Timestamp time.Time
	ReplyTo   string
	Reply     *domain.ReplySnapshot
	ClientID  string
}

// ChatService implements room history, sends and seen acknowledgements.
type ChatService struct {
	repo      repository.ChatRepository
	registry  seen.Registry
	broadcast Broadcaster
	uploads   *UploadProcessor
	history   singleflight.Group
	now       func() time.Time
}

// NewChatService wires the chat service.
func NewChatService(repo repository.ChatRepository, registry seen.Registry, broadcast Broadcaster, uploads *UploadProcessor) *ChatService {
	return &ChatService{
		repo:      repo,
		registry:  registry,
		broadcast: broadcast,
		uploads:   uploads,
		now:       time.Now,
	}
}

// History returns up to limit most recent messages of the room, oldest
// first. Concurrent identical pages collapse into one database read.
func (s *ChatService) History(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	exists, err := s.repo.RoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	key := roomID + ":" + strconv.Itoa(limit)
	v, err, _ := s.history.Do(key, func() (interface{}, error) {
		return s.repo.ListMessages(ctx, roomID, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Message), nil
}

// RoomsForUser returns the rooms the user participates in.
func (s *ChatService) RoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	return s.repo.RoomsForUser(ctx, userID)
}

// SendText validates, persists and echoes one text message. The returned
// message carries the server identity and, when the sender supplied one,
// the client correlation id so the sender's own copy reconciles.
func (s *ChatService) SendText(ctx context.Context, in SendInput) (domain.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	msg, err := s.prepare(ctx, in)
	if err != nil {
		return domain.Message{}, err
	}
	return s.persistAndEcho(ctx, msg)
}

// Upload is one uploaded file handed down by the multipart handler.
type Upload struct {
	Name    string
	Content []byte
}

// SendFiles stores the uploads, then persists and echoes a message
// carrying them plus optional text.
func (s *ChatService) SendFiles(ctx context.Context, in SendInput, files []Upload) (domain.Message, error) {
	if len(files) == 0 {
		return domain.Message{}, ErrNoFilesAttached
	}
	msg, err := s.prepare(ctx, in)
	if err != nil {
		return domain.Message{}, err
	}

	attachments := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		att, err := s.uploads.Process(ctx, f.Name, f.Content)
		if err != nil {
			return domain.Message{}, fmt.Errorf("process %s: %w", f.Name, err)
		}
		attachments = append(attachments, att)
	}
	msg.Attachments = attachments

	return s.persistAndEcho(ctx, msg)
}

// MarkSeen records the seen acknowledgement for the user in the room.
func (s *ChatService) MarkSeen(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return ErrMissingSender
	}
	exists, err := s.repo.RoomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}
	return s.registry.MarkSeen(ctx, roomID, userID)
}

// RoomExists reports whether the room is known.
func (s *ChatService) RoomExists(ctx context.Context, roomID string) (bool, error) {
	return s.repo.RoomExists(ctx, roomID)
}

// EnsureRoom creates the room with its participants when missing.
func (s *ChatService) EnsureRoom(ctx context.Context, room domain.Room) error {
	return s.repo.EnsureRoom(ctx, room)
}

func (s *ChatService) prepare(ctx context.Context, in SendInput) (domain.Message, error) {
	if in.SenderID == "" {
		return domain.Message{}, ErrMissingSender
	}
	exists, err := s.repo.RoomExists(ctx, in.RoomID)
	if err != nil {
		return domain.Message{}, err
	}
	if !exists {
		return domain.Message{}, ErrRoomNotFound
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	return domain.Message{
		MessageID:   uuid.New().String(),
		ClientID:    in.ClientID,
		RoomID:      in.RoomID,
		SenderID:    in.SenderID,
		Text:        in.Text,
		Timestamp:   ts.UTC(),
		ReplyTo:     in.ReplyTo,
		Reply:       in.Reply,
		Attachments: []domain.Attachment{},
	}, nil
}

func (s *ChatService) persistAndEcho(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	if s.broadcast != nil {
		frame, err := domain.NewChatMessageFrame(msg)
		if err == nil {
			err = s.broadcast.BroadcastToRoom(msg.RoomID, frame)
		}
		if err != nil {
			// Echo failure is not a send failure; the message is persisted
			// and retrievable through history.
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldMessageID, msg.MessageID).Msg("failed to broadcast echo")
		}
	}

	return msg, nil
}
