package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/hub"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/service"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// WSHandler upgrades connections and speaks the push-channel frame
// protocol: joinChat in, sendChatMessage in, chatMessage and error out.
type WSHandler struct {
	hub      *hub.Hub
	chat     *service.ChatService
	upgrader websocket.Upgrader
	config   hub.Config
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(h *hub.Hub, chat *service.ChatService, cfg hub.Config) *WSHandler {
	return &WSHandler{
		hub:  h,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dev server accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		config: cfg,
	}
}

// Serve upgrades the request and runs the connection's pumps.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.config)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleFrame)
}

// handleFrame dispatches one inbound frame. Malformed and unknown frames
// get an error frame back rather than dropping the connection.
func (h *WSHandler) handleFrame(client *hub.Client, raw []byte) {
	var base domain.BaseFrame
	if err := json.Unmarshal(raw, &base); err != nil {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "malformed frame"))
		return
	}

	switch base.Type {
	case domain.FrameJoinChat:
		h.handleJoin(client, raw)
	case domain.FrameSendChatMessage:
		h.handleSend(client, raw)
	default:
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "unknown frame type "+base.Type))
	}
}

func (h *WSHandler) handleJoin(client *hub.Client, raw []byte) {
	var frame domain.JoinChatFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.RoomID == "" {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "joinChat requires roomId"))
		return
	}

	exists, err := h.chat.RoomExists(context.Background(), frame.RoomID)
	if err != nil {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeInternalError, "failed to resolve room"))
		return
	}
	if !exists {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "unknown room "+frame.RoomID))
		return
	}

	client.SetRoom(frame.RoomID)
	h.hub.JoinRoom(client, frame.RoomID)
}

func (h *WSHandler) handleSend(client *hub.Client, raw []byte) {
	var frame domain.SendChatFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "malformed sendChatMessage frame"))
		return
	}

	if client.Room() == "" || client.Room() != frame.RoomID {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeNotInRoom, "join the room before sending"))
		return
	}

	var ts time.Time
	if frame.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, frame.Timestamp); err == nil {
			ts = parsed
		}
	}

	_, err := h.chat.SendText(context.Background(), service.SendInput{
		RoomID:    frame.RoomID,
		SenderID:  frame.SenderID,
		Text:      frame.Text,
		Timestamp: ts,
		ReplyTo:   frame.ReplyTo,
		ClientID:  frame.ClientID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrMissingSender):
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, err.Error()))
		case errors.Is(err, service.ErrRoomNotFound):
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeNotInRoom, "unknown room "+frame.RoomID))
		default:
			log.L().Error().Err(err).Str(log.FieldRoomID, frame.RoomID).Msg("websocket send failed")
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeInternalError, "failed to send message"))
		}
		return
	}
	// The confirmed message reaches the sender through the room echo.
}
