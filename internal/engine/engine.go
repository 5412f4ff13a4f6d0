// Package engine assembles one chat window: the timeline store fed by the
// history loader and the push channel, the send pipeline, the reply
// context and the scroll controller. It merges the two independently
// unreliable delivery paths into one consistent, deduplicated timeline.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/enoylitydev/Collabglam-sub004/internal/channel"
	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/history"
	"github.com/enoylitydev/Collabglam-sub004/internal/reply"
	"github.com/enoylitydev/Collabglam-sub004/internal/rest"
	"github.com/enoylitydev/Collabglam-sub004/internal/scroll"
	"github.com/enoylitydev/Collabglam-sub004/internal/send"
	"github.com/enoylitydev/Collabglam-sub004/internal/timeline"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// API is the REST surface the engine consumes. Satisfied by rest.Client.
type API interface {
	History(ctx context.Context, roomID string, limit int) ([]json.RawMessage, error)
	SendText(ctx context.Context, roomID string, req rest.SendTextRequest) (json.RawMessage, error)
	SendFiles(ctx context.Context, roomID, senderID, text, replyTo string, files []rest.FileUpload) (json.RawMessage, error)
	MarkSeen(ctx context.Context, roomID, userID string) error
}

// Conn is an established push channel. Satisfied by channel.Channel.
type Conn interface {
	IsJoined() bool
	SendFrame(frame interface{}) error
	Close()
}

// Dialer establishes the push channel for a room.
type Dialer func(ctx context.Context, roomID string, onMessage channel.MessageFunc, onError channel.ErrorFunc) (Conn, error)

// DefaultHistoryLimit is fetched when the config does not say otherwise.
const DefaultHistoryLimit = 50

// nominalMessageHeight is the height the scroll controller assumes for an
// inbound message until the renderer reports real geometry.
const nominalMessageHeight = 48

// Mount lifecycle states. An explicit once-only machine owned by the
// instance, not ambient flags.
type mountState int

const (
	unmounted mountState = iota
	mounting
	mounted
	closed
)

// Config wires an Engine.
type Config struct {
	RoomID       string
	UserID       string
	UserName     string
	HistoryLimit int
	FileBase     string

	API  API
	Dial Dialer
}

// Engine is one chat window instance. The store it owns is never shared
// across rooms or components.
type Engine struct {
	cfg       Config
	sanitizer *domain.Sanitizer
	store     *timeline.Store
	loader    *history.Loader
	pipeline  *send.Pipeline
	replies   *reply.Context
	scroll    *scroll.Controller

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state mountState
	conn  Conn

	bannerMu sync.Mutex
	banner   string
}

// New creates an engine for one room. Call Mount to load history and
// join the push channel.
func New(cfg Config) *Engine {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	sanitizer := &domain.Sanitizer{FileBase: cfg.FileBase}
	store := timeline.NewStore()
	replies := reply.NewContext()

	e := &Engine{
		cfg:       cfg,
		sanitizer: sanitizer,
		store:     store,
		loader:    history.NewLoader(cfg.API, store, sanitizer),
		replies:   replies,
		scroll:    scroll.NewController(),
	}
	e.pipeline = send.NewPipeline(cfg.RoomID, cfg.UserID, cfg.UserName, store, sanitizer, cfg.API, replies)
	e.pipeline.OnSent(e.scroll.JumpToBottom)
	return e
}

// Store exposes the timeline for rendering.
func (e *Engine) Store() *timeline.Store { return e.store }

// Scroll exposes the scroll controller for the renderer.
func (e *Engine) Scroll() *scroll.Controller { return e.scroll }

// Replies exposes the reply context for the composer.
func (e *Engine) Replies() *reply.Context { return e.replies }

// Busy reports whether an upload is in flight.
func (e *Engine) Busy() bool { return e.pipeline.Busy() }

// Mount loads history and joins the push channel. Duplicate invocations
// are no-ops while mounted; a failed history load leaves the engine
// unmounted and retryable. A failed channel dial is non-fatal: the window
// stays usable on the REST fallback with an error banner.
func (e *Engine) Mount(ctx context.Context) error {
	e.mu.Lock()
	if e.state != unmounted {
		e.mu.Unlock()
		return nil
	}
	e.state = mounting
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	if err := e.loader.Load(e.ctx, e.cfg.RoomID, e.cfg.HistoryLimit); err != nil {
		e.mu.Lock()
		e.state = unmounted
		e.mu.Unlock()
		e.setBanner("could not load conversation, try again")
		return err
	}
	e.scroll.JumpToBottom()

	if e.cfg.Dial != nil {
		conn, err := e.cfg.Dial(e.ctx, e.cfg.RoomID, e.handleInbound, e.handleChannelError)
		if err != nil {
			// Sends fall back to REST; no automatic reconnect.
			log.Ctx(e.ctx).Warn().Err(err).Str(log.FieldRoomID, e.cfg.RoomID).Msg("push channel unavailable")
			e.setBanner("live connection unavailable")
		} else {
			e.mu.Lock()
			e.conn = conn
			e.mu.Unlock()
			e.pipeline.AttachChannel(conn)
		}
	}

	e.mu.Lock()
	if e.state != mounting {
		// Closed while the dial was in flight; keep the teardown state
		// and release the connection Close could not see yet.
		conn := e.conn
		e.conn = nil
		e.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	e.state = mounted
	e.mu.Unlock()

	e.markSeen()
	return nil
}

// Close tears the window down deterministically: the channel is closed and
// no further events are processed. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.state == closed {
		e.mu.Unlock()
		return
	}
	e.state = closed
	conn := e.conn
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}

// context returns the mount context, or Background before Mount.
func (e *Engine) context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// SendText sends a text message through the active lifecycle.
func (e *Engine) SendText(text string) error {
	if e.pipeline.Busy() {
		return send.ErrUploadInFlight
	}
	if err := e.pipeline.SendText(e.context(), text); err != nil {
		e.setBanner("message could not be sent")
		return err
	}
	return nil
}

// SendFiles uploads attachments with optional caption text.
func (e *Engine) SendFiles(text string, files []rest.FileUpload) error {
	if err := e.pipeline.SendFiles(e.context(), text, files); err != nil {
		if err != send.ErrUploadInFlight {
			e.setBanner("upload failed")
		}
		return err
	}
	return nil
}

// ReplyTo marks a rendered message as the pending reply target.
func (e *Engine) ReplyTo(messageID string) error {
	m, ok := e.store.GetByID(messageID)
	if !ok {
		return fmt.Errorf("reply target %s: %w", messageID, scroll.ErrNotInView)
	}
	e.replies.Set(m)
	return nil
}

// JumpToReply scrolls to the message a reply snapshot references. A target
// outside the loaded history window is a non-fatal hint, not an error
// state.
func (e *Engine) JumpToReply(messageID string) error {
	if _, ok := e.store.GetByID(messageID); !ok {
		return scroll.ErrNotInView
	}
	return e.scroll.ScrollToMessage(messageID)
}

// Banner returns the current non-fatal error banner, empty when clear.
func (e *Engine) Banner() string {
	e.bannerMu.Lock()
	defer e.bannerMu.Unlock()
	return e.banner
}

// ClearBanner dismisses the banner.
func (e *Engine) ClearBanner() {
	e.setBanner("")
}

// handleInbound receives raw chatMessage payloads from the push channel.
// Own echoes reconcile the optimistic placeholder; everything else
// appends idempotently.
func (e *Engine) handleInbound(raw json.RawMessage) {
	if e.isClosed() {
		return
	}

	m := e.sanitizer.SanitizeJSON(raw)

	if m.SenderID == e.cfg.UserID {
		e.store.ReplaceOptimistic(m)
		return
	}

	if e.store.Append(m) {
		wasNearBottom := e.scroll.NearBottom()
		e.scroll.OnInbound(nominalMessageHeight)
		if wasNearBottom {
			// Off the read pump; the acknowledgement round trip must not
			// stall frame delivery.
			go e.markSeen()
		}
	}
}

func (e *Engine) handleChannelError(err error) {
	if e.isClosed() {
		return
	}
	log.Ctx(e.context()).Warn().Err(err).Str(log.FieldRoomID, e.cfg.RoomID).Msg("push channel error")
	e.setBanner("live connection lost")
}

// markSeen is best-effort: a failure never disturbs the timeline.
func (e *Engine) markSeen() {
	ctx := e.context()
	if err := e.cfg.API.MarkSeen(ctx, e.cfg.RoomID, e.cfg.UserID); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("mark seen failed")
		return
	}
	e.store.MarkAllSeen()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == closed
}

func (e *Engine) setBanner(msg string) {
	e.bannerMu.Lock()
	e.banner = msg
	e.bannerMu.Unlock()
}
