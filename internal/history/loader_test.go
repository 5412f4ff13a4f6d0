package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/timeline"
)

type fakeSource struct {
	calls int
	raws  []json.RawMessage
	err   error
}

func (f *fakeSource) History(ctx context.Context, roomID string, limit int) ([]json.RawMessage, error) {
	f.calls++
	return f.raws, f.err
}

func newSanitizer() *domain.Sanitizer {
	return &domain.Sanitizer{Now: func() time.Time { return time.Unix(1000, 0) }}
}

func TestLoadFeedsStoreThroughSanitizer(t *testing.T) {
	src := &fakeSource{raws: []json.RawMessage{
		[]byte(`{"messageId":"m1","text":"first","timestamp":"2026-01-15T12:00:00Z"}`),
		[]byte(`{"messageId":"m2","text":null}`), // sanitized, not rejected
	}}
	store := timeline.NewStore()
	l := NewLoader(src, store, newSanitizer())

	require.NoError(t, l.Load(context.Background(), "r1", 50))
	assert.Equal(t, Ready, l.State())
	assert.Equal(t, 2, store.Len())

	m, ok := store.GetByID("m2")
	require.True(t, ok)
	assert.Equal(t, "", m.Text)
}

func TestLoadOnceOnly(t *testing.T) {
	src := &fakeSource{raws: []json.RawMessage{[]byte(`{"messageId":"m1"}`)}}
	store := timeline.NewStore()
	l := NewLoader(src, store, newSanitizer())

	require.NoError(t, l.Load(context.Background(), "r1", 50))
	require.NoError(t, l.Load(context.Background(), "r1", 50))
	require.NoError(t, l.Load(context.Background(), "r1", 50))

	assert.Equal(t, 1, src.calls, "duplicate invocations must not refetch")
}

func TestLoadFailureIsRetryable(t *testing.T) {
	src := &fakeSource{err: errors.New("network down")}
	store := timeline.NewStore()
	l := NewLoader(src, store, newSanitizer())

	err := l.Load(context.Background(), "r1", 50)
	require.Error(t, err)
	assert.Equal(t, Uninitialized, l.State())
	assert.Equal(t, 0, store.Len(), "failed load must not partially populate")

	// Retry succeeds.
	src.err = nil
	src.raws = []json.RawMessage{[]byte(`{"messageId":"m1"}`)}
	require.NoError(t, l.Load(context.Background(), "r1", 50))
	assert.Equal(t, Ready, l.State())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 2, src.calls)
}
