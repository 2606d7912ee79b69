package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salscrudato/product-console/internal/cache"
	"github.com/salscrudato/product-console/internal/model"
)

// Sessions holds per-conversation message history. Sessions are ephemeral:
// they live in memory, expire after a period of inactivity, and survive
// neither restarts nor horizontal scaling.
type Sessions struct {
	mu     sync.Mutex
	byID   *cache.TTL[[]model.ChatMessage]
	window int
}

// NewSessions creates a session store. window bounds how many recent
// messages each session retains; ttl is the inactivity expiry.
func NewSessions(window int, ttl time.Duration, now func() time.Time) *Sessions {
	if window <= 0 {
		window = 8
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{
		byID:   cache.New[[]model.ChatMessage](ttl, now),
		window: window,
	}
}

// NewID returns a fresh session identifier.
func (s *Sessions) NewID() string {
	return uuid.New().String()
}

// History returns a copy of the session's retained messages. Unknown or
// expired sessions yield an empty history.
func (s *Sessions) History(sessionID string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.byID.Get(sessionID)
	if !ok {
		return nil
	}
	return append([]model.ChatMessage(nil), msgs...)
}

// Append records messages on the session, trimming to the retention window.
// Any write refreshes the session's expiry.
func (s *Sessions) Append(sessionID string, msgs ...model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, _ := s.byID.Get(sessionID)
	history = append(history, msgs...)
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}
	s.byID.Set(sessionID, history)
}

// Clear drops a session.
func (s *Sessions) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID.Invalidate(sessionID)
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID.Sweep()
}
