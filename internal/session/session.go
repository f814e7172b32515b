package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"course-rag/internal/models"
)

// Store keeps per-session conversation history so follow-up questions can
// reference earlier exchanges.
type Store interface {
	// Get returns the retained exchanges of a session, oldest first.
	// An unknown session yields an empty history, not an error.
	Get(ctx context.Context, sessionID string) ([]models.Exchange, error)
	// Append records one completed exchange, evicting the oldest entries
	// beyond the store's history cap.
	Append(ctx context.Context, sessionID string, exchange models.Exchange) error
}

// FormatHistory renders exchanges for inclusion in the system prompt.
func FormatHistory(exchanges []models.Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}

	lines := make([]string, 0, len(exchanges))
	for _, exchange := range exchanges {
		lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", exchange.User, exchange.Assistant))
	}

	return strings.Join(lines, "\n")
}

// MemoryStore retains history in process memory. History is lost on restart,
// which is fine for the CLI and for tests.
type MemoryStore struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]models.Exchange
}

// NewMemoryStore creates a store keeping at most maxHistory exchanges per
// session. A cap of 0 disables history retention entirely.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		sessions:   make(map[string][]models.Exchange),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]models.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	out := make([]models.Exchange, len(history))
	copy(out, history)

	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, exchange models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxHistory <= 0 {
		return nil
	}

	history := append(s.sessions[sessionID], exchange)
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[sessionID] = history

	return nil
}
