package seen

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry keeps seen state in process memory. Used when no redis
// backend is configured, and by tests.
type MemoryRegistry struct {
	mu   sync.RWMutex
	seen map[string]map[string]time.Time // roomID -> userID -> last seen
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{seen: make(map[string]map[string]time.Time)}
}

// MarkSeen records that the user has seen the room as of now.
func (r *MemoryRegistry) MarkSeen(ctx context.Context, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[roomID]; !ok {
		r.seen[roomID] = make(map[string]time.Time)
	}
	r.seen[roomID][userID] = time.Now()
	return nil
}

// LastSeen returns when the user last saw the room.
func (r *MemoryRegistry) LastSeen(ctx context.Context, roomID, userID string) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.seen[roomID][userID]
	return at, ok, nil
}

// Close is a no-op for the in-memory registry.
func (r *MemoryRegistry) Close() error {
	return nil
}
