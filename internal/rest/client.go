// Package rest is the request/response fallback transport. It returns
// message payloads as raw JSON so every result passes through the
// sanitizer before entering the timeline.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client is a typed client for the chat REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a REST client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// envelope mirrors the server's {success,data,error} response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorInfo      `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendTextRequest is the JSON body for a text send.
type SendTextRequest struct {
	SenderID string                `json:"senderId"`
	Text     string                `json:"text"`
	ReplyTo  string                `json:"replyTo,omitempty"`
	Reply    *domain.ReplySnapshot `json:"reply,omitempty"`
	ClientID string                `json:"clientId,omitempty"`
}

// FileUpload is one file in a multipart send.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// RoomsForUser fetches the rooms the user participates in.
func (c *Client) RoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	data, err := c.get(ctx, fmt.Sprintf("/api/v1/users/%s/rooms", url.PathEscape(userID)))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return payload.Rooms, nil
}

// History fetches up to limit prior messages for the room, ordered oldest
// to newest. Each entry is raw JSON for the sanitizer.
func (c *Client) History(ctx context.Context, roomID string, limit int) ([]json.RawMessage, error) {
	path := fmt.Sprintf("/api/v1/rooms/%s/messages?limit=%s", url.PathEscape(roomID), strconv.Itoa(limit))
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return payload.Messages, nil
}

// SendText posts a text message and returns the confirmed message payload.
func (c *Client) SendText(ctx context.Context, roomID string, req SendTextRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode send: %w", err)
	}
	data, err := c.post(ctx, fmt.Sprintf("/api/v1/rooms/%s/messages", url.PathEscape(roomID)), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return extractMessage(data)
}

// SendFiles posts a multipart message carrying one or more files plus
// optional text and reply target, and returns the confirmed message
// payload.
func (c *Client) SendFiles(ctx context.Context, roomID, senderID, text, replyTo string, files []FileUpload) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"senderId": senderID,
		"text":     text,
		"replyTo":  replyTo,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copy file %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	data, err := c.post(ctx, fmt.Sprintf("/api/v1/rooms/%s/attachments", url.PathEscape(roomID)), w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return extractMessage(data)
}

// MarkSeen marks the conversation seen for the user.
func (c *Client) MarkSeen(ctx context.Context, roomID, userID string) error {
	body, _ := json.Marshal(map[string]string{"userId": userID})
	_, err := c.post(ctx, fmt.Sprintf("/api/v1/rooms/%s/seen", url.PathEscape(roomID)), "application/json", bytes.NewReader(body))
	return err
}

func extractMessage(data json.RawMessage) (json.RawMessage, error) {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return payload.Message, nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}

	if !env.Success {
		code := "UNKNOWN"
		msg := resp.Status
		if env.Error != nil {
			code = env.Error.Code
			msg = env.Error.Message
		}
		return nil, fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, code, msg)
	}

	return env.Data, nil
}
