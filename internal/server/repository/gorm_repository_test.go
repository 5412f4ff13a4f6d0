package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

func openTestRepo(t *testing.T) *GormChatRepository {
	t.Helper()
	repo, err := Open(":memory:")
	require.NoError(t, err)
	return repo
}

func TestSaveAndListMessages(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg := domain.Message{
			MessageID: fmt.Sprintf("msg-%d", i),
			RoomID:    "room-1",
			SenderID:  "alice",
			Text:      fmt.Sprintf("hello %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.SaveMessage(ctx, msg))
	}

	messages, err := repo.ListMessages(ctx, "room-1", 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// The most recent page, oldest first.
	assert.Equal(t, "msg-2", messages[0].MessageID)
	assert.Equal(t, "msg-4", messages[2].MessageID)
	assert.True(t, messages[0].Timestamp.Before(messages[1].Timestamp))
}

func TestListMessagesScopedToRoom(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveMessage(ctx, domain.Message{
		MessageID: "m-1", RoomID: "room-1", SenderID: "alice", Text: "a", Timestamp: time.Now(),
	}))
	require.NoError(t, repo.SaveMessage(ctx, domain.Message{
		MessageID: "m-2", RoomID: "room-2", SenderID: "bob", Text: "b", Timestamp: time.Now(),
	}))

	messages, err := repo.ListMessages(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "m-1", messages[0].MessageID)
}

func TestMessageRoundTripPreservesReplyAndAttachments(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	msg := domain.Message{
		MessageID: "m-1",
		RoomID:    "room-1",
		SenderID:  "alice",
		Text:      "look at this",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		ReplyTo:   "m-0",
		Reply: &domain.ReplySnapshot{
			MessageID: "m-0",
			SenderID:  "bob",
			Text:      "original",
		},
		Attachments: []domain.Attachment{
			{
				URL:          "http://files.local/a.png",
				OriginalName: "a.png",
				MimeType:     "image/png",
				Size:         1234,
				Width:        640,
				Height:       480,
				Storage:      domain.StorageLocal,
			},
		},
	}
	require.NoError(t, repo.SaveMessage(ctx, msg))

	messages, err := repo.ListMessages(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	got := messages[0]
	require.NotNil(t, got.Reply)
	assert.Equal(t, "m-0", got.Reply.MessageID)
	assert.Equal(t, "original", got.Reply.Text)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "a.png", got.Attachments[0].OriginalName)
	assert.Equal(t, 640, got.Attachments[0].Width)
}

func TestEnsureRoomIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	room := domain.Room{
		RoomID: "room-1",
		Participants: []domain.Participant{
			{UserID: "alice", Name: "Alice"},
			{UserID: "bob", Name: "Bob"},
		},
	}
	require.NoError(t, repo.EnsureRoom(ctx, room))
	require.NoError(t, repo.EnsureRoom(ctx, room))

	exists, err := repo.RoomExists(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.RoomExists(ctx, "room-2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoomsForUser(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureRoom(ctx, domain.Room{
		RoomID: "room-1",
		Participants: []domain.Participant{
			{UserID: "alice", Name: "Alice"},
			{UserID: "bob", Name: "Bob"},
		},
	}))
	require.NoError(t, repo.EnsureRoom(ctx, domain.Room{
		RoomID:       "room-2",
		Participants: []domain.Participant{{UserID: "bob", Name: "Bob"}},
	}))

	rooms, err := repo.RoomsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "room-1", rooms[0].RoomID)
	assert.Len(t, rooms[0].Participants, 2)

	rooms, err = repo.RoomsForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	rooms, err = repo.RoomsForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
