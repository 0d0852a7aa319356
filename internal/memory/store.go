// Package memory maintains bounded per-patient conversation histories.
//
// The Store is the only cross-request mutable state in the chat core.
// One instance is constructed at server start and shared by every
// request handler; it is volatile by design and does not survive a
// process restart.
package memory

import (
	"strings"
	"sync"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the patient.
	RoleUser Role = "user"

	// RoleAssistant marks a message written by the model.
	RoleAssistant Role = "assistant"
)

// DefaultMaxExchanges is the number of user/assistant pairs retained
// per patient when no explicit bound is configured.
const DefaultMaxExchanges = 6

// Message is a single conversation turn. Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Stats is a read-only snapshot of the store's state.
type Stats struct {
	TotalPatients int            `json:"total_patients"`
	MaxExchanges  int            `json:"max_exchanges_per_patient"`
	MaxMessages   int            `json:"max_messages_per_patient"`
	MessageCounts map[string]int `json:"patient_message_counts"`
}

// Store holds bounded, independent message histories keyed by patient ID.
//
// Each history keeps at most maxMessages (= 2 × maxExchanges) entries;
// appending beyond the bound evicts the oldest message first. Eviction
// is per message, not per exchange, so after repeated overflow the
// oldest retained message may carry either role. That is accepted
// trimming behavior, not an error.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu           sync.RWMutex
	histories    map[string][]Message
	maxExchanges int
	maxMessages  int
}

// NewStore creates a Store retaining at most maxExchanges user/assistant
// pairs per patient. Non-positive values fall back to DefaultMaxExchanges.
func NewStore(maxExchanges int) *Store {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &Store{
		histories:    make(map[string][]Message),
		maxExchanges: maxExchanges,
		maxMessages:  maxExchanges * 2,
	}
}

// Append adds a message to the patient's history, creating the history
// on first use. If the bound is exceeded, the oldest messages are
// evicted until the history fits. Append always succeeds.
func (s *Store) Append(patientID string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.histories[patientID], Message{Role: role, Content: content})
	if overflow := len(history) - s.maxMessages; overflow > 0 {
		history = history[overflow:]
	}
	s.histories[patientID] = history
}

// History returns a copy of the patient's history, oldest first.
// Unknown patients yield an empty slice. The returned slice never
// aliases live store state, so callers are insulated from concurrent
// eviction.
func (s *Store) History(patientID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[patientID]
	snapshot := make([]Message, len(history))
	copy(snapshot, history)
	return snapshot
}

// Formatted renders the patient's history as a role-labeled transcript
// for use as classifier context. An empty history renders to an empty
// string, not a header with no body.
func (s *Store) Formatted(patientID string) string {
	history := s.History(patientID)
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("CONVERSATION HISTORY:\n")
	for _, msg := range history {
		b.WriteString(strings.ToUpper(string(msg.Role)))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Clear removes the patient's history entirely.
// It reports whether a history existed.
func (s *Store) Clear(patientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.histories[patientID]
	delete(s.histories, patientID)
	return ok
}

// ClearAll removes every history in the store.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.histories)
}

// Len returns the number of messages stored for the patient.
func (s *Store) Len(patientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.histories[patientID])
}

// Stats returns a diagnostic snapshot of the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.histories))
	for id, history := range s.histories {
		counts[id] = len(history)
	}
	return Stats{
		TotalPatients: len(s.histories),
		MaxExchanges:  s.maxExchanges,
		MaxMessages:   s.maxMessages,
		MessageCounts: counts,
	}
}
