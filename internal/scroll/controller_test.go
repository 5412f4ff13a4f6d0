package scroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// immediateAfterFunc fires the callback synchronously so highlight
// clearing is deterministic in tests.
func immediateAfterFunc(d time.Duration, fn func()) *time.Timer {
	fn()
	return time.NewTimer(time.Hour)
}

func TestNearBottom(t *testing.T) {
	c := NewController(WithBottomThreshold(100))

	c.SetMetrics(2000, 600, 1400) // exactly at bottom
	assert.True(t, c.NearBottom())

	c.SetMetrics(2000, 600, 1320) // 80 from bottom, inside threshold
	assert.True(t, c.NearBottom())

	c.SetMetrics(2000, 600, 500) // scrolled up
	assert.False(t, c.NearBottom())
}

func TestJumpToBottom(t *testing.T) {
	c := NewController()
	var scrolled []int
	c.OnScroll(func(offset int) { scrolled = append(scrolled, offset) })

	c.SetMetrics(2000, 600, 0)
	c.JumpToBottom()

	assert.Equal(t, 1400, c.Offset())
	assert.Equal(t, []int{1400}, scrolled)
}

func TestAutoScrollWhenNearBottom(t *testing.T) {
	c := NewController(WithBottomThreshold(100))
	c.SetMetrics(2000, 600, 1400)

	c.OnInbound(50)

	assert.Equal(t, 1450, c.Offset(), "viewport follows a new message when the viewer was at the bottom")
	assert.Equal(t, 0, c.PendingCount())
}

func TestNoYankWhenScrolledUp(t *testing.T) {
	c := NewController(WithBottomThreshold(100))
	c.SetMetrics(2000, 600, 500)

	c.OnInbound(50)
	c.OnInbound(50)

	assert.Equal(t, 500, c.Offset(), "viewport must not move while reading history")
	assert.Equal(t, 2, c.PendingCount(), "new-messages affordance becomes visible instead")
}

func TestPendingClearsOnJumpToBottom(t *testing.T) {
	c := NewController(WithBottomThreshold(100))
	c.SetMetrics(2000, 600, 500)
	c.OnInbound(50)
	require.Equal(t, 1, c.PendingCount())

	c.JumpToBottom()
	assert.Equal(t, 0, c.PendingCount())
}

func TestScrollToMessageHighlights(t *testing.T) {
	var fire func()
	deferredAfterFunc := func(d time.Duration, fn func()) *time.Timer {
		fire = fn
		return time.NewTimer(time.Hour)
	}

	c := NewController(WithAfterFunc(deferredAfterFunc))
	c.SetMetrics(2000, 600, 1400)
	c.SetMessagePosition("m1", 300)

	require.NoError(t, c.ScrollToMessage("m1"))
	assert.Equal(t, 0, c.Offset(), "target centered and clamped to top")
	assert.Equal(t, "m1", c.HighlightedMessage())

	fire()
	assert.Equal(t, "", c.HighlightedMessage(), "highlight clears after the interval")
}

func TestScrollToMessageImmediateClear(t *testing.T) {
	c := NewController(WithAfterFunc(immediateAfterFunc))
	c.SetMetrics(2000, 600, 0)
	c.SetMessagePosition("m1", 1000)

	require.NoError(t, c.ScrollToMessage("m1"))
	assert.Equal(t, "", c.HighlightedMessage())
	assert.Equal(t, 700, c.Offset())
}

func TestScrollToMessageNotInView(t *testing.T) {
	c := NewController()
	err := c.ScrollToMessage("never-rendered")
	assert.ErrorIs(t, err, ErrNotInView)
	assert.Equal(t, "", c.HighlightedMessage())
}
