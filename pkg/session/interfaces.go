package session

import (
	"context"
	"time"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// Store is the bounded conversation-history contract: push to the head,
// trim to the cap, refresh the retention window on every write, read the
// last K entries back in chronological order. The push sequence is one
// logical unit per session per turn; concurrent writers to the same session
// may interleave between turns, which the bounded sliding history tolerates.
type Store interface {
	// Push prepends a message, trims to the cap and refreshes retention.
	Push(ctx context.Context, sessionID string, msg models.ChatMessage) error

	// History returns up to limit of the most recent messages, oldest
	// first.
	History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)

	// Count returns the number of retained messages for the session.
	Count(ctx context.Context, sessionID string) (int, error)

	// Clear removes the session's history.
	Clear(ctx context.Context, sessionID string) error

	// Close releases store resources.
	Close() error
}

// Options bound every store implementation.
type Options struct {
	MaxMessages int           // history cap per session
	Retention   time.Duration // sliding window, refreshed on write
}

const (
	defaultMaxMessages = 50
	defaultRetention   = 24 * time.Hour
)

func (o Options) withDefaults() Options {
	if o.MaxMessages <= 0 {
		o.MaxMessages = defaultMaxMessages
	}

	if o.Retention <= 0 {
		o.Retention = defaultRetention
	}

	return o
}
