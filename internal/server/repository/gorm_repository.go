package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// GormChatRepository implements ChatRepository using GORM over sqlite.
type GormChatRepository struct {
	db *gorm.DB
}

// Open opens the sqlite database at path and migrates the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*GormChatRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&MessageModel{}, &RoomModel{}, &ParticipantModel{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &GormChatRepository{db: db}, nil
}

// NewGormChatRepository wraps an existing gorm handle.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// SaveMessage stores a confirmed message.
func (r *GormChatRepository) SaveMessage(ctx context.Context, msg domain.Message) error {
	l := log.Ctx(ctx)

	model := MessageToModel(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, msg.MessageID).Msg("failed to save message")
		return err
	}
	l.Debug().Str(log.FieldMessageID, msg.MessageID).Str(log.FieldRoomID, msg.RoomID).Msg("message saved")
	return nil
}

// ListMessages returns up to limit most recent messages, oldest first.
func (r *GormChatRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		return nil, err
	}

	// Reverse into chronological order.
	out := make([]domain.Message, len(models))
	for i, m := range models {
		out[len(models)-1-i] = m.ToDomain()
	}
	return out, nil
}

// RoomsForUser returns the rooms the user participates in.
func (r *GormChatRepository) RoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	var memberships []ParticipantModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(memberships))
	for _, membership := range memberships {
		var members []ParticipantModel
		if err := r.db.WithContext(ctx).Where("room_id = ?", membership.RoomID).Find(&members).Error; err != nil {
			return nil, err
		}
		room := domain.Room{RoomID: membership.RoomID, Participants: make([]domain.Participant, 0, len(members))}
		for _, m := range members {
			room.Participants = append(room.Participants, domain.Participant{UserID: m.UserID, Name: m.Name})
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// EnsureRoom creates the room and its participants when missing.
func (r *GormChatRepository) EnsureRoom(ctx context.Context, room domain.Room) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RoomModel
		err := tx.First(&existing, "id = ?", room.RoomID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&RoomModel{ID: room.RoomID}).Error; err != nil {
			return err
		}
		for _, p := range room.Participants {
			member := ParticipantModel{RoomID: room.RoomID, UserID: p.UserID, Name: p.Name}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RoomExists reports whether the room is known.
func (r *GormChatRepository) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RoomModel{}).Where("id = ?", roomID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
