package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestHistory(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rooms/r1/messages", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"success":true,"data":{"messages":[{"messageId":"m1","text":"a"},{"messageId":"m2","text":"b"}]}}`))
	})

	msgs, err := c.History(context.Background(), "r1", 25)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, string(msgs[0]), `"m1"`)
}

func TestSendText(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/rooms/r1/messages", r.URL.Path)

		var req SendTextRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		assert.Equal(t, "c1", req.ClientID)

		w.Write([]byte(`{"success":true,"data":{"message":{"messageId":"m1","text":"hello","clientId":"c1"}}}`))
	})

	raw, err := c.SendText(context.Background(), "r1", SendTextRequest{SenderID: "u1", Text: "hello", ClientID: "c1"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"messageId":"m1"`)
}

func TestSendFilesMultipart(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "u1", r.FormValue("senderId"))
		assert.Equal(t, "caption", r.FormValue("text"))
		assert.Equal(t, "m0", r.FormValue("replyTo"))
		require.Len(t, r.MultipartForm.File["files"], 2)

		w.Write([]byte(`{"success":true,"data":{"message":{"messageId":"m1"}}}`))
	})

	files := []FileUpload{
		{Name: "a.png", Content: strings.NewReader("png-bytes")},
		{Name: "b.pdf", Content: strings.NewReader("pdf-bytes")},
	}
	raw, err := c.SendFiles(context.Background(), "r1", "u1", "caption", "m0", files)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"m1"`)
}

func TestMarkSeen(t *testing.T) {
	var seen bool
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = true
		assert.Equal(t, "/api/v1/rooms/r1/seen", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"acknowledged":true}}`))
	})

	require.NoError(t, c.MarkSeen(context.Background(), "r1", "u1"))
	assert.True(t, seen)
}

func TestRoomsForUser(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/u1/rooms", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"rooms":[{"roomId":"r1","participants":[{"userId":"u1","name":"Ann"}]}]}}`))
	})

	rooms, err := c.RoomsForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].RoomID)
	assert.Equal(t, "Ann", rooms[0].Participants[0].Name)
}

func TestErrorEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":{"code":"BAD_REQUEST","message":"text required"}}`))
	})

	_, err := c.SendText(context.Background(), "r1", SendTextRequest{SenderID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_REQUEST")
	assert.Contains(t, err.Error(), "text required")
}
