package store

import (
	"sync"

	"github.com/petwell/pawchat/internal/domain"
)

// MessageStore owns the two ordered sequences behind a chat view: the
// server-confirmed messages of the active conversation and the
// locally-originated optimistic messages. The confirmed list is never
// patched in place; every successful fetch replaces it wholesale.
type MessageStore struct {
	mu        sync.RWMutex
	confirmed []domain.Message
	local     []domain.LocalMessage
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// ReplaceConfirmed swaps in the latest authoritative history. The slice is
// copied; callers keep ownership of their argument.
func (s *MessageStore) ReplaceConfirmed(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = make([]domain.Message, len(msgs))
	copy(s.confirmed, msgs)
}

// AppendLocal records a new optimistic entry at send time.
func (s *MessageStore) AppendLocal(entry domain.LocalMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = append(s.local, entry)
}

// MarkLocalStatus transitions a local entry's delivery status.
// Returns false if no entry with that temp id exists.
func (s *MessageStore) MarkLocalStatus(tempID string, status domain.DeliveryStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.local {
		if s.local[i].TempID == tempID {
			s.local[i].Status = status
			return true
		}
	}
	return false
}

// BumpLocalAttempts increments a local entry's attempt counter and returns
// the new count, or 0 if the entry does not exist.
func (s *MessageStore) BumpLocalAttempts(tempID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.local {
		if s.local[i].TempID == tempID {
			s.local[i].Attempts++
			return s.local[i].Attempts
		}
	}
	return 0
}

// DropLocal removes a local entry, typically once a matching confirmed
// message superseded it.
func (s *MessageStore) DropLocal(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.local[:0]
	for _, m := range s.local {
		if m.TempID != tempID {
			kept = append(kept, m)
		}
	}
	s.local = kept
}

// Local returns a copy of the local entry with the given temp id.
func (s *MessageStore) Local(tempID string) (domain.LocalMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.local {
		if m.TempID == tempID {
			return m, true
		}
	}
	return domain.LocalMessage{}, false
}

// Clear empties both lists. Invoked on conversation switch or view close.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = nil
	s.local = nil
}

// Snapshot returns copies of both lists for reconciliation.
func (s *MessageStore) Snapshot() ([]domain.Message, []domain.LocalMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	confirmed := make([]domain.Message, len(s.confirmed))
	copy(confirmed, s.confirmed)
	local := make([]domain.LocalMessage, len(s.local))
	copy(local, s.local)
	return confirmed, local
}

// FailedLocals returns the local entries awaiting a manual retry.
func (s *MessageStore) FailedLocals() []domain.LocalMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var failed []domain.LocalMessage
	for _, m := range s.local {
		if m.Status == domain.StatusFailed {
			failed = append(failed, m)
		}
	}
	return failed
}
