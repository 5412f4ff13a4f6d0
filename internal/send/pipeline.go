// Package send implements the optimistic-echo send lifecycle: a local
// placeholder with a client-generated correlation token is rendered
// immediately, then reconciled with the server-confirmed record delivered
// by the channel echo or the REST response, or rolled back if the send
// definitively fails.
package send

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/reply"
	"github.com/enoylitydev/Collabglam-sub004/internal/rest"
	"github.com/enoylitydev/Collabglam-sub004/internal/timeline"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// ErrUploadInFlight is returned while an attachment upload is running;
// the composer disables input instead of queuing a duplicate submission.
var ErrUploadInFlight = fmt.Errorf("upload already in flight")

// ChannelSender is the push-channel send surface.
type ChannelSender interface {
	IsJoined() bool
	SendFrame(frame interface{}) error
}

// RESTSender is the request/response fallback surface.
type RESTSender interface {
	SendText(ctx context.Context, roomID string, req rest.SendTextRequest) (json.RawMessage, error)
	SendFiles(ctx context.Context, roomID, senderID, text, replyTo string, files []rest.FileUpload) (json.RawMessage, error)
}

// Pipeline turns user input into store entries and wire traffic.
type Pipeline struct {
	roomID     string
	senderID   string
	senderName string

	store     *timeline.Store
	sanitizer *domain.Sanitizer
	restc     RESTSender
	channel   ChannelSender // nil when the push channel never opened
	replies   *reply.Context

	now   func() time.Time
	newID func() string

	uploading atomic.Bool
	onSent    func() // scroll bump after a local send
}

// NewPipeline wires a pipeline for one room and local identity.
func NewPipeline(roomID, senderID, senderName string, store *timeline.Store, sanitizer *domain.Sanitizer, restc RESTSender, replies *reply.Context) *Pipeline {
	return &Pipeline{
		roomID:     roomID,
		senderID:   senderID,
		senderName: senderName,
		store:      store,
		sanitizer:  sanitizer,
		restc:      restc,
		replies:    replies,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// AttachChannel gives the pipeline a push channel to prefer over REST.
func (p *Pipeline) AttachChannel(ch ChannelSender) {
	p.channel = ch
}

// OnSent registers the hook fired right after an optimistic entry lands,
// so the viewport jumps to the bottom.
func (p *Pipeline) OnSent(fn func()) {
	p.onSent = fn
}

// Busy reports whether an attachment upload is in flight. The composer
// uses it to disable the text input and the attach control.
func (p *Pipeline) Busy() bool {
	return p.uploading.Load()
}

// SendText sends a text message. The optimistic entry is visible before
// any network traffic; a definitive REST failure rolls it back. When the
// channel carries the send, confirmation arrives later as an echo frame
// and is reconciled by the engine.
func (p *Pipeline) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	snapshot := p.replies.Snapshot(p.store)
	target, _ := p.replies.Consume()

	clientID := p.newID()
	optimistic := domain.Message{
		ClientID:    clientID,
		RoomID:      p.roomID,
		SenderID:    p.senderID,
		SenderName:  p.senderName,
		Text:        text,
		Timestamp:   p.now(),
		ReplyTo:     target.MessageID,
		Reply:       snapshot,
		Attachments: []domain.Attachment{},
	}
	p.store.Append(optimistic)
	p.bumpScroll()

	if p.channel != nil && p.channel.IsJoined() {
		frame := domain.SendChatFrame{
			Type:      domain.FrameSendChatMessage,
			RoomID:    p.roomID,
			SenderID:  p.senderID,
			Text:      text,
			Timestamp: optimistic.Timestamp.UTC().Format(time.RFC3339Nano),
			ReplyTo:   target.MessageID,
			ClientID:  clientID,
		}
		if err := p.channel.SendFrame(frame); err == nil {
			return nil
		}
		// Channel refused the frame; fall through to the REST path.
		log.Ctx(ctx).Debug().Str(log.FieldClientID, clientID).Msg("channel send failed, falling back to REST")
	}

	req := rest.SendTextRequest{
		SenderID: p.senderID,
		Text:     text,
		ReplyTo:  target.MessageID,
		Reply:    snapshot,
		ClientID: clientID,
	}
	raw, err := p.restc.SendText(ctx, p.roomID, req)
	if err != nil {
		// One retry for transient failures, then roll back.
		raw, err = p.restc.SendText(ctx, p.roomID, req)
	}
	if err != nil {
		p.store.RemoveByClientID(clientID)
		return fmt.Errorf("send text: %w", err)
	}

	p.reconcile(raw, clientID)
	return nil
}

// SendFiles uploads one or more files with optional caption text. No
// optimistic entry is created for uploads; on failure nothing remains in
// the store, on success the confirmed message is inserted directly.
func (p *Pipeline) SendFiles(ctx context.Context, text string, files []rest.FileUpload) error {
	if len(files) == 0 {
		return nil
	}
	if !p.uploading.CompareAndSwap(false, true) {
		return ErrUploadInFlight
	}
	defer p.uploading.Store(false)

	target, _ := p.replies.Consume()

	raw, err := p.restc.SendFiles(ctx, p.roomID, p.senderID, strings.TrimSpace(text), target.MessageID, files)
	if err != nil {
		return fmt.Errorf("send files: %w", err)
	}

	// No placeholder exists for an upload, so the confirmation is a plain
	// idempotent insert. Reconciling by sender and text here could swallow
	// a pending optimistic text entry that happens to match the caption.
	p.store.UpsertByIdentity(p.sanitizer.SanitizeJSON(raw))
	p.bumpScroll()
	return nil
}

// reconcile feeds a confirmed server payload through the sanitizer and
// into the store.
func (p *Pipeline) reconcile(raw json.RawMessage, clientID string) {
	confirmed := p.sanitizer.SanitizeJSON(raw)
	if confirmed.ClientID == "" {
		confirmed.ClientID = clientID
	}
	p.store.ReplaceOptimistic(confirmed)
}

func (p *Pipeline) bumpScroll() {
	if p.onSent != nil {
		p.onSent()
	}
}
