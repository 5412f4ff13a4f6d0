// Package timeline holds the ordered, key-indexed message collection that
// is the single source of truth for a rendered conversation. Both delivery
// paths (history fetch and push channel) feed it; the correlation key makes
// every reconciliation operation idempotent, so the final state is the same
// regardless of arrival order.
package timeline

import (
	"sync"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

// Store is an ordered, deduplicated collection of messages for one room.
// It is owned by a single chat window instance and never shared across
// rooms. A mutex guards it because channel pumps run on their own
// goroutines.
type Store struct {
	mu       sync.RWMutex
	messages []domain.Message
	index    map[string]int // correlation key -> position

	onChange func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// OnChange registers a callback invoked after every mutation. Used by the
// renderer; must not call back into the store synchronously.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Append inserts the message at its chronological position unless an entry
// with the same correlation key already exists. Returns true if the store
// changed. Equal timestamps keep arrival order.
func (s *Store) Append(m domain.Message) bool {
	s.mu.Lock()
	key := Key(m)
	if _, ok := s.index[key]; ok {
		s.mu.Unlock()
		return false
	}
	s.insertLocked(key, m)
	s.mu.Unlock()
	s.notify()
	return true
}

// ReplaceOptimistic reconciles a server-confirmed message with its local
// optimistic placeholder: the most recent unconfirmed entry matching by
// client id (when the server echoes one) or by sender and text. The entry
// keeps its position. Falls back to Append when no placeholder matches.
func (s *Store) ReplaceOptimistic(server domain.Message) bool {
	s.mu.Lock()
	serverKey := Key(server)
	if _, ok := s.index[serverKey]; ok {
		// Already confirmed, e.g. REST response raced the channel echo.
		s.mu.Unlock()
		return false
	}

	pos := -1
	for i := len(s.messages) - 1; i >= 0; i-- {
		cand := s.messages[i]
		if cand.MessageID != "" {
			continue
		}
		if server.ClientID != "" && cand.ClientID == server.ClientID {
			pos = i
			break
		}
		if server.ClientID == "" && cand.SenderID == server.SenderID && cand.Text == server.Text {
			pos = i
			break
		}
	}

	if pos < 0 {
		s.insertLocked(serverKey, server)
		s.mu.Unlock()
		s.notify()
		return true
	}

	delete(s.index, Key(s.messages[pos]))
	s.messages[pos] = server
	s.index[serverKey] = pos
	s.mu.Unlock()
	s.notify()
	return true
}

// UpsertByIdentity appends only if no entry with that server identity
// already exists. Unconfirmed input degrades to Append.
func (s *Store) UpsertByIdentity(m domain.Message) bool {
	return s.Append(m)
}

// RemoveByClientID rolls back the optimistic entry created by a failed
// send. Returns true if an entry was removed.
func (s *Store) RemoveByClientID(clientID string) bool {
	if clientID == "" {
		return false
	}
	s.mu.Lock()
	pos := -1
	for i, m := range s.messages {
		if m.ClientID == clientID && m.MessageID == "" {
			pos = i
			break
		}
	}
	if pos < 0 {
		s.mu.Unlock()
		return false
	}
	delete(s.index, Key(s.messages[pos]))
	s.messages = append(s.messages[:pos], s.messages[pos+1:]...)
	s.reindexLocked(pos)
	s.mu.Unlock()
	s.notify()
	return true
}

// MarkAllSeen flips the seen flag on every message.
func (s *Store) MarkAllSeen() {
	s.mu.Lock()
	for i := range s.messages {
		s.messages[i].Seen = true
	}
	s.mu.Unlock()
	s.notify()
}

// GetByID returns the message with the given server identity.
func (s *Store) GetByID(messageID string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos, ok := s.index[messageID]; ok {
		return s.messages[pos], true
	}
	return domain.Message{}, false
}

// Last returns the newest message in the timeline.
func (s *Store) Last() (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return domain.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Len returns the number of messages held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Messages returns a copy of the timeline in chronological order.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) insertLocked(key string, m domain.Message) {
	pos := len(s.messages)
	for pos > 0 && s.messages[pos-1].Timestamp.After(m.Timestamp) {
		pos--
	}
	s.messages = append(s.messages, domain.Message{})
	copy(s.messages[pos+1:], s.messages[pos:])
	s.messages[pos] = m
	s.index[key] = pos
	s.reindexLocked(pos + 1)
}

func (s *Store) reindexLocked(from int) {
	for i := from; i < len(s.messages); i++ {
		s.index[Key(s.messages[i])] = i
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
