// Package session stores bounded per-conversation message history.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-orz/cache"

	"github.com/kestrelmon/kestrel/pkg/models"
)

const cacheSweepInterval = time.Minute

// MemoryStore keeps history in a TTL cache. Sessions expire wholesale when
// their retention window passes without a write.
type MemoryStore struct {
	opts     Options
	mu       sync.Mutex
	sessions cache.Cache[string, []models.ChatMessage]
}

// NewMemoryStore builds an in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:     opts.withDefaults(),
		sessions: cache.New[string, []models.ChatMessage](cacheSweepInterval),
	}
}

// Push prepends the message, trims to the cap and resets the session TTL.
func (s *MemoryStore) Push(_ context.Context, sessionID string, msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, _ := s.sessions.Get(sessionID)

	updated := make([]models.ChatMessage, 0, len(history)+1)
	updated = append(updated, msg)
	updated = append(updated, history...)

	if len(updated) > s.opts.MaxMessages {
		updated = updated[:s.opts.MaxMessages]
	}

	s.sessions.Set(sessionID, updated, s.opts.Retention)

	return nil
}

// History returns the newest limit messages, oldest first.
func (s *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil
	}

	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}

	// stored newest-first, returned chronological
	out := make([]models.ChatMessage, len(history))
	for i := range history {
		out[len(history)-1-i] = history[i]
	}

	return out, nil
}

// Count returns the retained message count.
func (s *MemoryStore) Count(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, _ := s.sessions.Get(sessionID)

	return len(history), nil
}

// Clear drops the session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Delete(sessionID)

	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
