package repository

import (
	"context"
	"errors"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

// ErrRoomNotFound is returned for operations against an unknown room.
var ErrRoomNotFound = errors.New("room not found")

// ChatRepository persists messages and room membership.
type ChatRepository interface {
	// SaveMessage stores a confirmed message.
	SaveMessage(ctx context.Context, msg domain.Message) error

	// ListMessages returns up to limit most recent messages of the room,
	// ordered oldest to newest.
	ListMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)

	// RoomsForUser returns the rooms the user participates in, members
	// included.
	RoomsForUser(ctx context.Context, userID string) ([]domain.Room, error)

	// EnsureRoom creates the room and its participant set when missing.
	EnsureRoom(ctx context.Context, room domain.Room) error

	// RoomExists reports whether the room is known.
	RoomExists(ctx context.Context, roomID string) (bool, error)
}
