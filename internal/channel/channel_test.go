package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// testServer upgrades one connection and exposes it for frame injection.
type testServer struct {
	t      *testing.T
	url    string
	connCh chan *websocket.Conn
}

func newWSServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{t: t, connCh: make(chan *websocket.Conn, 1)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ts.connCh <- conn
	}))
	t.Cleanup(srv.Close)
	ts.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return ts
}

func (ts *testServer) accept() *websocket.Conn {
	ts.t.Helper()
	select {
	case conn := <-ts.connCh:
		return conn
	case <-time.After(2 * time.Second):
		ts.t.Fatal("timed out waiting for connection")
		return nil
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

type collector struct {
	mu       sync.Mutex
	messages []json.RawMessage
	errors   []error
}

func (c *collector) onMessage(raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, raw)
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *collector) messageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) waitForMessages(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.messageCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", n, c.messageCount())
}

func TestDialSendsJoinDirective(t *testing.T) {
	ts := newWSServer(t)
	col := &collector{}

	c, err := Dial(context.Background(), Config{URL: ts.url}, "r1", col.onMessage, col.onError)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	conn := ts.accept()
	var join domain.JoinChatFrame
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &join))
	assert.Equal(t, domain.FrameJoinChat, join.Type)
	assert.Equal(t, "r1", join.RoomID)
	assert.Equal(t, Joined, c.State())
}

func TestInboundDeliveryScopedToRoom(t *testing.T) {
	ts := newWSServer(t)
	col := &collector{}

	c, err := Dial(context.Background(), Config{URL: ts.url}, "r1", col.onMessage, col.onError)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	conn := ts.accept()
	readFrame(t, conn) // join

	frames := []string{
		`{"type":"chatMessage","roomId":"r1","message":{"messageId":"m1","text":"in scope"}}`,
		`{"type":"chatMessage","roomId":"other","message":{"messageId":"m2"}}`, // foreign room
		`not json at all`,              // undecodable
		`{"type":"presenceUpdate"}`,    // unknown type
		`{"type":"chatMessage","roomId":"r1","message":{"messageId":"m3","text":"also in scope"}}`,
	}
	for _, f := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
	}

	col.waitForMessages(t, 2)
	col.mu.Lock()
	defer col.mu.Unlock()
	assert.Len(t, col.messages, 2, "only in-room chatMessage frames are delivered")
	assert.Contains(t, string(col.messages[0]), `"m1"`)
	assert.Empty(t, col.errors, "malformed frames are discarded silently, not errors")
}

func TestSendFrameReachesServer(t *testing.T) {
	ts := newWSServer(t)
	col := &collector{}

	c, err := Dial(context.Background(), Config{URL: ts.url}, "r1", col.onMessage, col.onError)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	conn := ts.accept()
	readFrame(t, conn) // join

	out := domain.SendChatFrame{
		Type:     domain.FrameSendChatMessage,
		RoomID:   "r1",
		SenderID: "u1",
		Text:     "hello",
		ClientID: "c1",
	}
	require.NoError(t, c.SendFrame(out))

	var got domain.SendChatFrame
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &got))
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "c1", got.ClientID)
}

func TestCloseStopsDelivery(t *testing.T) {
	ts := newWSServer(t)
	col := &collector{}

	c, err := Dial(context.Background(), Config{URL: ts.url}, "r1", col.onMessage, col.onError)
	require.NoError(t, err)

	conn := ts.accept()
	readFrame(t, conn) // join

	c.Close()
	c.Close() // idempotent
	assert.Equal(t, Closed, c.State())

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chatMessage","roomId":"r1","message":{"messageId":"late"}}`))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, col.messageCount(), "no events are processed after close")

	require.Error(t, c.SendFrame(domain.BaseFrame{Type: "x"}))
}

func TestServerErrorFrameSurfaces(t *testing.T) {
	ts := newWSServer(t)
	col := &collector{}

	c, err := Dial(context.Background(), Config{URL: ts.url}, "r1", col.onMessage, col.onError)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	conn := ts.accept()
	readFrame(t, conn) // join

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"error","code":"INTERNAL_ERROR","message":"boom"}`)))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		col.mu.Lock()
		n := len(col.errors)
		col.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	col.mu.Lock()
	defer col.mu.Unlock()
	require.NotEmpty(t, col.errors)
	assert.Contains(t, col.errors[0].Error(), "INTERNAL_ERROR")
}

func TestCloseWhilePinging(t *testing.T) {
	// Teardown must not collide with the write pump's pings; gorilla
	// allows only one concurrent writer per connection.
	ts := newWSServer(t)

	for i := 0; i < 50; i++ {
		col := &collector{}
		ch, err := Dial(context.Background(), Config{
			URL:          ts.url,
			PingInterval: time.Millisecond,
		}, "room-1", col.onMessage, col.onError)
		require.NoError(t, err)

		server := ts.accept()
		go func() {
			for {
				if _, _, err := server.ReadMessage(); err != nil {
					return
				}
			}
		}()

		time.Sleep(2 * time.Millisecond)
		ch.Close()
		server.Close()
	}
}
