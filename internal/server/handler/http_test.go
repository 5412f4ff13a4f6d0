package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/repository"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/seen"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/service"
	"github.com/enoylitydev/Collabglam-sub004/pkg/storage"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := repository.Open(":memory:")
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	svc := service.NewChatService(repo, seen.NewMemoryRegistry(), nil, service.NewUploadProcessor(store))
	require.NoError(t, svc.EnsureRoom(context.Background(), domain.Room{
		RoomID: "room-1",
		Participants: []domain.Participant{
			{UserID: "alice", Name: "Alice"},
			{UserID: "bob", Name: "Bob"},
		},
	}))

	router := gin.New()
	NewHTTPHandler(svc).RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestSendTextAndHistory(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"senderId": "alice",
		"text":     "hello room",
		"clientId": "client-1",
	})
	w, env := doRequest(t, router, http.MethodPost, "/api/v1/rooms/room-1/messages", "application/json", body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	var created struct {
		Message domain.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.Message.MessageID)
	assert.Equal(t, "client-1", created.Message.ClientID)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/rooms/room-1/messages?limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var history struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hello room", history.Messages[0].Text)
}

func TestSendTextValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"senderId": "alice", "text": "hi"})
	w, env := doRequest(t, router, http.MethodPost, "/api/v1/rooms/missing/messages", "application/json", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)

	body, _ = json.Marshal(map[string]string{"senderId": "alice", "text": "   "})
	w, env = doRequest(t, router, http.MethodPost, "/api/v1/rooms/room-1/messages", "application/json", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/rooms/room-1/messages", "application/json", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestSendAttachments(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("senderId", "alice"))
	require.NoError(t, mw.WriteField("text", "see attached"))
	part, err := mw.CreateFormFile("files", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("some plain text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/rooms/room-1/attachments", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	var created struct {
		Message domain.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "see attached", created.Message.Text)
	require.Len(t, created.Message.Attachments, 1)
	assert.Equal(t, "notes.txt", created.Message.Attachments[0].OriginalName)
	assert.True(t, strings.HasPrefix(created.Message.Attachments[0].MimeType, "text/plain"))
}

func TestSendAttachmentsWithoutFiles(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("senderId", "alice"))
	require.NoError(t, mw.Close())

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/rooms/room-1/attachments", mw.FormDataContentType(), buf.Bytes())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestListRooms(t *testing.T) {
	router := newTestRouter(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/users/alice/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var payload struct {
		Rooms []domain.Room `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Len(t, payload.Rooms, 1)
	assert.Equal(t, "room-1", payload.Rooms[0].RoomID)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/users/nobody/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Empty(t, payload.Rooms)
}

func TestMarkSeenEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"userId": "alice"})
	w, env := doRequest(t, router, http.MethodPost, "/api/v1/rooms/room-1/seen", "application/json", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/rooms/missing/seen", "application/json", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}
