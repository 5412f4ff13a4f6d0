// Package scroll drives viewport behavior for the rendered timeline: the
// near-bottom check, auto-scroll on send and receive, and jump-to-message
// for reply previews. The renderer reports geometry; the controller owns
// the policy.
package scroll

import (
	"errors"
	"sync"
	"time"
)

// ErrNotInView is the non-fatal condition raised when a jump target is
// outside the loaded history window.
var ErrNotInView = errors.New("message not in view")

// DefaultBottomThreshold is the distance from the bottom, in renderer
// units, under which the viewer still counts as "at the bottom".
const DefaultBottomThreshold = 120

// DefaultHighlightDuration is how long a jumped-to message stays
// highlighted.
const DefaultHighlightDuration = 2 * time.Second

// Controller tracks viewport geometry for one conversation window.
type Controller struct {
	mu sync.Mutex

	threshold         int
	highlightDuration time.Duration
	afterFunc         func(time.Duration, func()) *time.Timer

	contentHeight  int
	viewportHeight int
	offset         int

	positions map[string]int // message id -> content offset

	pending        int
	highlightID    string
	highlightTimer *time.Timer

	onScroll func(offset int)
}

// Option configures a Controller.
type Option func(*Controller)

// WithBottomThreshold overrides the near-bottom distance.
func WithBottomThreshold(n int) Option {
	return func(c *Controller) { c.threshold = n }
}

// WithHighlightDuration overrides how long the jump highlight lasts.
func WithHighlightDuration(d time.Duration) Option {
	return func(c *Controller) { c.highlightDuration = d }
}

// WithAfterFunc injects the timer constructor; tests use it to fire the
// highlight clear synchronously.
func WithAfterFunc(fn func(time.Duration, func()) *time.Timer) Option {
	return func(c *Controller) { c.afterFunc = fn }
}

// NewController creates a controller with default policy.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		threshold:         DefaultBottomThreshold,
		highlightDuration: DefaultHighlightDuration,
		afterFunc:         time.AfterFunc,
		positions:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnScroll registers the renderer hook invoked whenever the controller
// moves the viewport.
func (c *Controller) OnScroll(fn func(offset int)) {
	c.mu.Lock()
	c.onScroll = fn
	c.mu.Unlock()
}

// SetMetrics is called by the renderer whenever geometry changes: total
// content height, visible viewport height and the current scroll offset.
func (c *Controller) SetMetrics(contentHeight, viewportHeight, offset int) {
	c.mu.Lock()
	c.contentHeight = contentHeight
	c.viewportHeight = viewportHeight
	c.offset = offset
	nearBottom := c.nearBottomLocked()
	c.mu.Unlock()

	if nearBottom {
		c.mu.Lock()
		c.pending = 0
		c.mu.Unlock()
	}
}

// SetMessagePosition records where a rendered message sits in the content.
func (c *Controller) SetMessagePosition(messageID string, offset int) {
	c.mu.Lock()
	c.positions[messageID] = offset
	c.mu.Unlock()
}

// NearBottom reports whether the viewer is within the threshold of the
// end of the timeline.
func (c *Controller) NearBottom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nearBottomLocked()
}

func (c *Controller) nearBottomLocked() bool {
	distance := c.contentHeight - (c.offset + c.viewportHeight)
	return distance <= c.threshold
}

// Offset returns the current scroll offset.
func (c *Controller) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// PendingCount returns the number of inbound messages that arrived while
// the viewer was scrolled up; drives the "new messages" affordance.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// HighlightedMessage returns the id currently carrying the jump highlight.
func (c *Controller) HighlightedMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlightID
}

// JumpToBottom scrolls the viewport to the end unconditionally. Used
// after history load and after a local send.
func (c *Controller) JumpToBottom() {
	c.mu.Lock()
	c.offset = c.bottomOffsetLocked()
	c.pending = 0
	fn := c.onScroll
	offset := c.offset
	c.mu.Unlock()

	if fn != nil {
		fn(offset)
	}
}

// OnInbound is called for every message delivered while the window is
// mounted. The viewport follows only if the viewer was already near the
// bottom before the message arrived; otherwise the pending counter grows
// instead of yanking the viewport.
func (c *Controller) OnInbound(addedHeight int) {
	c.mu.Lock()
	wasNearBottom := c.nearBottomLocked()
	c.contentHeight += addedHeight
	if !wasNearBottom {
		c.pending++
		c.mu.Unlock()
		return
	}
	c.offset = c.bottomOffsetLocked()
	c.pending = 0
	fn := c.onScroll
	offset := c.offset
	c.mu.Unlock()

	if fn != nil {
		fn(offset)
	}
}

// ScrollToMessage moves the viewport to a rendered message and applies a
// transient highlight. Returns ErrNotInView when the target has no
// recorded position.
func (c *Controller) ScrollToMessage(messageID string) error {
	c.mu.Lock()
	pos, ok := c.positions[messageID]
	if !ok {
		c.mu.Unlock()
		return ErrNotInView
	}

	target := pos - c.viewportHeight/2
	if max := c.bottomOffsetLocked(); target > max {
		target = max
	}
	if target < 0 {
		target = 0
	}
	c.offset = target

	oldTimer := c.highlightTimer
	c.highlightTimer = nil
	c.highlightID = messageID

	fn := c.onScroll
	offset := c.offset
	c.mu.Unlock()

	if oldTimer != nil {
		oldTimer.Stop()
	}

	// The timer is armed outside the lock so an injected synchronous
	// afterFunc cannot deadlock.
	timer := c.afterFunc(c.highlightDuration, func() {
		c.mu.Lock()
		c.highlightID = ""
		c.mu.Unlock()
	})
	c.mu.Lock()
	c.highlightTimer = timer
	c.mu.Unlock()

	if fn != nil {
		fn(offset)
	}
	return nil
}

func (c *Controller) bottomOffsetLocked() int {
	offset := c.contentHeight - c.viewportHeight
	if offset < 0 {
		offset = 0
	}
	return offset
}
