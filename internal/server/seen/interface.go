// Package seen tracks last-seen state per room and user, backing the
// mark-seen acknowledgement endpoint.
package seen

import (
	"context"
	"time"
)

// Registry records when a user last saw a conversation.
type Registry interface {
	// MarkSeen records that the user has seen the room as of now.
	MarkSeen(ctx context.Context, roomID, userID string) error

	// LastSeen returns when the user last saw the room. ok is false when
	// the user never marked it seen.
	LastSeen(ctx context.Context, roomID, userID string) (at time.Time, ok bool, err error)

	// Close releases backend resources.
	Close() error
}
