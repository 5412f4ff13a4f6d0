// Package channel manages one push-channel connection per room.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// Connection states.
type State int

const (
	Connecting State = iota
	Joined
	Closed
)

// Config holds connection parameters for one room channel.
type Config struct {
	URL            string        `mapstructure:"url"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PingInterval == 0 {
		out.PingInterval = 30 * time.Second
	}
	if out.PongWait == 0 {
		out.PongWait = 60 * time.Second
	}
	if out.WriteWait == 0 {
		out.WriteWait = 10 * time.Second
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = 1 << 20
	}
	return out
}

// MessageFunc receives the raw message payload of a chatMessage frame
// scoped to the bound room.
type MessageFunc func(raw json.RawMessage)

// ErrorFunc receives non-fatal transport errors. The channel does not
// reconnect; the user re-enters the conversation to re-establish.
type ErrorFunc func(err error)

// Channel is a client of the push endpoint for a single room. It performs
// the join handshake on dial, delivers well-formed inbound chat messages
// for its room, and silently discards everything else. Close is
// deterministic: no callback fires after it returns.
type Channel struct {
	cfg    Config
	roomID string
	conn   *websocket.Conn

	onMessage MessageFunc
	onError   ErrorFunc

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	state State
}

// Dial connects, sends the join directive for roomID and starts the read
// and write pumps.
func Dial(ctx context.Context, cfg Config, roomID string, onMessage MessageFunc, onError ErrorFunc) (*Channel, error) {
	c := &Channel{
		cfg:       cfg.withDefaults(),
		roomID:    roomID,
		onMessage: onMessage,
		onError:   onError,
		sendCh:    make(chan []byte, 64),
		done:      make(chan struct{}),
		state:     Connecting,
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	c.conn = conn

	join := domain.JoinChatFrame{Type: domain.FrameJoinChat, RoomID: roomID}
	data, _ := json.Marshal(join)
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join room %s: %w", roomID, err)
	}

	c.mu.Lock()
	c.state = Joined
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	return c, nil
}

// State returns the current channel state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsJoined reports whether the channel is open for sending.
func (c *Channel) IsJoined() bool {
	return c.State() == Joined
}

// SendFrame queues an outbound frame. Returns an error once closed.
func (c *Channel) SendFrame(frame interface{}) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	select {
	case <-c.done:
		return fmt.Errorf("channel closed")
	case c.sendCh <- data:
		return nil
	}
}

// Close tears the connection down. Idempotent; no events are delivered
// after it returns.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = Closed
		c.mu.Unlock()
		close(c.done)

		// WriteControl is safe alongside the write pump; a plain write
		// here could collide with an in-flight ping.
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteWait))
		c.conn.Close()
	})
}

func (c *Channel) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.cfg.WriteWait))
	})
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed() {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.surfaceError(fmt.Errorf("channel read: %w", err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.dispatch(data)
	}
}

// dispatch delivers chatMessage frames for the bound room. Malformed
// frames, foreign rooms and unknown types are out-of-scope events, not
// errors.
func (c *Channel) dispatch(data []byte) {
	if c.closed() {
		return
	}

	var base domain.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		log.L().Trace().Err(err).Msg("discarding undecodable frame")
		return
	}

	switch base.Type {
	case domain.FrameChatMessage:
		var frame domain.ChatMessageFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.L().Trace().Err(err).Msg("discarding malformed chatMessage frame")
			return
		}
		if frame.RoomID != c.roomID {
			log.L().Trace().Str(log.FieldRoomID, frame.RoomID).Msg("discarding frame for foreign room")
			return
		}
		if c.onMessage != nil && !c.closed() {
			c.onMessage(frame.Message)
		}

	case domain.FrameError:
		var frame domain.ErrorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		c.surfaceError(fmt.Errorf("channel error %s: %s", frame.Code, frame.Message))

	default:
		log.L().Trace().Str("frame_type", base.Type).Msg("discarding frame of unknown type")
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case data := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !c.closed() {
					c.surfaceError(fmt.Errorf("channel write: %w", err))
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Channel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) surfaceError(err error) {
	if c.onError != nil && !c.closed() {
		c.onError(err)
	}
}
