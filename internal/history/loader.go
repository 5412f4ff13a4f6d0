// Package history performs the one-shot paginated fetch of prior messages
// for a room.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/timeline"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// State of the once-only initialization machine. An explicit state owned
// by the loader instance replaces ambient re-entrancy flags.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
)

// Source fetches raw history payloads. Satisfied by rest.Client.
type Source interface {
	History(ctx context.Context, roomID string, limit int) ([]json.RawMessage, error)
}

// Loader fetches prior messages exactly once per mounted conversation and
// feeds them to the store through the sanitizer. A failed load resets the
// machine so the caller can retry; a successful or in-flight load makes
// further calls no-ops.
type Loader struct {
	source    Source
	store     *timeline.Store
	sanitizer *domain.Sanitizer

	mu    sync.Mutex
	state State
}

// NewLoader creates a loader bound to a store.
func NewLoader(source Source, store *timeline.Store, sanitizer *domain.Sanitizer) *Loader {
	return &Loader{source: source, store: store, sanitizer: sanitizer}
}

// State returns the current initialization state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load fetches up to limit prior messages for the room. Duplicate
// invocations while a load is in flight or after success are no-ops. On
// failure the store is left untouched and the loader becomes retryable
// again.
func (l *Loader) Load(ctx context.Context, roomID string, limit int) error {
	l.mu.Lock()
	if l.state != Uninitialized {
		l.mu.Unlock()
		return nil
	}
	l.state = Initializing
	l.mu.Unlock()

	raws, err := l.source.History(ctx, roomID, limit)
	if err != nil {
		l.mu.Lock()
		l.state = Uninitialized
		l.mu.Unlock()
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("history load failed")
		return fmt.Errorf("load history: %w", err)
	}

	// Sanitize everything before touching the store so a panic-free,
	// fully-populated batch is the only thing that ever lands in it.
	msgs := make([]domain.Message, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, l.sanitizer.SanitizeJSON(raw))
	}
	for _, m := range msgs {
		l.store.Append(m)
	}

	l.mu.Lock()
	l.state = Ready
	l.mu.Unlock()

	log.Ctx(ctx).Debug().Str(log.FieldRoomID, roomID).Int("count", len(msgs)).Msg("history loaded")
	return nil
}
