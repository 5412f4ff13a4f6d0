// Package reply tracks the message currently being replied to.
package reply

import (
	"sync"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

// Target is the pending reply target shown above the composer.
type Target struct {
	MessageID string
	SenderID  string
	Text      string
}

// Lookup resolves a message by server identity. Satisfied by the timeline
// store.
type Lookup interface {
	GetByID(messageID string) (domain.Message, bool)
}

// Context holds at most one pending reply target. Set when the user
// invokes "reply" on a rendered message, cleared on send or explicit
// cancel.
type Context struct {
	mu     sync.Mutex
	target *Target
}

// NewContext creates an empty reply context.
func NewContext() *Context {
	return &Context{}
}

// Set records the reply target.
func (c *Context) Set(m domain.Message) {
	c.mu.Lock()
	c.target = &Target{MessageID: m.MessageID, SenderID: m.SenderID, Text: m.Text}
	c.mu.Unlock()
}

// Clear drops the pending target.
func (c *Context) Clear() {
	c.mu.Lock()
	c.target = nil
	c.mu.Unlock()
}

// Pending returns the current target, if any.
func (c *Context) Pending() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return Target{}, false
	}
	return *c.target, true
}

// Consume returns and clears the pending target in one step; used by the
// send pipeline so a sent reply cannot be attached twice.
func (c *Context) Consume() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return Target{}, false
	}
	t := *c.target
	c.target = nil
	return t, true
}

// Snapshot resolves the denormalized reply snapshot for the pending
// target. The referenced message is looked up in the store for its
// attachment summary; when it is outside the loaded window the snapshot
// falls back to the captured text.
func (c *Context) Snapshot(lookup Lookup) *domain.ReplySnapshot {
	t, ok := c.Pending()
	if !ok {
		return nil
	}

	snap := &domain.ReplySnapshot{
		MessageID: t.MessageID,
		SenderID:  t.SenderID,
		Text:      t.Text,
	}

	if lookup != nil {
		if m, found := lookup.GetByID(t.MessageID); found && m.HasAttachments() {
			snap.HasAttachment = true
			att := m.Attachments[0]
			snap.Attachment = &att
		}
	}

	return snap
}
