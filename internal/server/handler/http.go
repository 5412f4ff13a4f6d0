// Package handler exposes the chat service over HTTP and websocket.
package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/service"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
	"github.com/enoylitydev/Collabglam-sub004/pkg/response"
)

const maxUploadBytes = 32 << 20

// HTTPHandler serves the REST API.
type HTTPHandler struct {
	chat *service.ChatService
}

// NewHTTPHandler creates the REST handler.
func NewHTTPHandler(chat *service.ChatService) *HTTPHandler {
	return &HTTPHandler{chat: chat}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.GET("/users/:user_id/rooms", h.ListRooms)
	v1.GET("/rooms/:room_id/messages", h.History)
	v1.POST("/rooms/:room_id/messages", h.SendText)
	v1.POST("/rooms/:room_id/attachments", h.SendFiles)
	v1.POST("/rooms/:room_id/seen", h.MarkSeen)
}

// ListRooms returns the rooms the user participates in.
func (h *HTTPHandler) ListRooms(c *gin.Context) {
	userID := c.Param("user_id")
	rooms, err := h.chat.RoomsForUser(c.Request.Context(), userID)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}
	response.Success(c, gin.H{"rooms": rooms})
}

// History returns the room's recent messages, oldest first.
func (h *HTTPHandler) History(c *gin.Context) {
	roomID := c.Param("room_id")

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid limit")
		return
	}

	messages, err := h.chat.History(c.Request.Context(), roomID, query.Limit)
	if err != nil {
		h.writeError(c, roomID, err, "failed to load history")
		return
	}
	response.Success(c, gin.H{"messages": messages})
}

type sendTextBody struct {
	SenderID string                `json:"senderId"`
	Text     string                `json:"text"`
	ReplyTo  string                `json:"replyTo"`
	Reply    *domain.ReplySnapshot `json:"reply"`
	ClientID string                `json:"clientId"`
}

// SendText accepts a text message and returns the confirmed record.
func (h *HTTPHandler) SendText(c *gin.Context) {
	roomID := c.Param("room_id")

	var body sendTextBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	msg, err := h.chat.SendText(c.Request.Context(), service.SendInput{
		RoomID:   roomID,
		SenderID: body.SenderID,
		Text:     body.Text,
		ReplyTo:  body.ReplyTo,
		Reply:    body.Reply,
		ClientID: body.ClientID,
	})
	if err != nil {
		h.writeError(c, roomID, err, "failed to send message")
		return
	}
	response.Created(c, gin.H{"message": msg})
}

// SendFiles accepts a multipart message carrying files plus optional text
// and reply target, and returns the confirmed record.
func (h *HTTPHandler) SendFiles(c *gin.Context) {
	roomID := c.Param("room_id")

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(c, "invalid multipart form")
		return
	}

	form := c.Request.MultipartForm
	uploads := make([]service.Upload, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			response.BadRequest(c, "unreadable file part")
			return
		}
		content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			response.BadRequest(c, "unreadable file part")
			return
		}
		uploads = append(uploads, service.Upload{Name: header.Filename, Content: content})
	}

	msg, err := h.chat.SendFiles(c.Request.Context(), service.SendInput{
		RoomID:   roomID,
		SenderID: c.PostForm("senderId"),
		Text:     c.PostForm("text"),
		ReplyTo:  c.PostForm("replyTo"),
	}, uploads)
	if err != nil {
		h.writeError(c, roomID, err, "failed to send attachments")
		return
	}
	response.Created(c, gin.H{"message": msg})
}

// MarkSeen records the seen acknowledgement for the user.
func (h *HTTPHandler) MarkSeen(c *gin.Context) {
	roomID := c.Param("room_id")

	var body struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.chat.MarkSeen(c.Request.Context(), roomID, body.UserID); err != nil {
		h.writeError(c, roomID, err, "failed to mark seen")
		return
	}
	response.Success(c, gin.H{"roomId": roomID, "seenAt": time.Now().UTC()})
}

func (h *HTTPHandler) writeError(c *gin.Context, roomID string, err error, internalMsg string) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, "room not found")
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMissingSender),
		errors.Is(err, service.ErrNoFilesAttached):
		response.BadRequest(c, err.Error())
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Str(log.FieldRoomID, roomID).Msg(internalMsg)
		response.InternalError(c, internalMsg)
	}
}
