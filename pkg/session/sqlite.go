package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/models"
)

const (
	dbOperationTimeout = 5 * time.Second

	// the KV store's TTL becomes an expires_at column plus a sweep; reads
	// also filter expired rows so correctness never depends on sweep timing
	sweepSchedule = "@every 1h"

	createTableSQL = `
	CREATE TABLE IF NOT EXISTS conversation_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		content TEXT NOT NULL,
		sender TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		metadata TEXT,
		expires_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session
		ON conversation_messages(session_id, id DESC);
	CREATE INDEX IF NOT EXISTS idx_messages_expiry
		ON conversation_messages(expires_at);`
)

// SQLiteStore persists history in SQLite. A cron sweep prunes sessions past
// their retention window.
type SQLiteStore struct {
	db     *sql.DB
	opts   Options
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSQLiteStore opens the database, initializes the schema and starts the
// expiry sweep.
func NewSQLiteStore(path string, opts Options, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenDB, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errEnableWAL, err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errInitSchema, err)
	}

	s := &SQLiteStore{
		db:     db,
		opts:   opts.withDefaults(),
		cron:   cron.New(),
		logger: logger,
	}

	if _, err := s.cron.AddFunc(sweepSchedule, s.sweep); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errInitSchema, err)
	}

	s.cron.Start()

	return s, nil
}

// Push inserts the message, refreshes the session's retention window and
// trims to the cap, all in one transaction.
func (s *SQLiteStore) Push(ctx context.Context, sessionID string, msg models.ChatMessage) error {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("%w: %w", errSaveMessage, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errBeginTx, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	expiresAt := time.Now().Add(s.opts.Retention)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_messages
			(session_id, content, sender, timestamp, metadata, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, msg.Content, string(msg.Sender), msg.Timestamp, string(metadata), expiresAt); err != nil {
		return fmt.Errorf("%w: %w", errSaveMessage, err)
	}

	// sliding window: every write refreshes the whole session
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversation_messages SET expires_at = ? WHERE session_id = ?`,
		expiresAt, sessionID); err != nil {
		return fmt.Errorf("%w: %w", errSaveMessage, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM conversation_messages
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM conversation_messages
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`, sessionID, sessionID, s.opts.MaxMessages); err != nil {
		return fmt.Errorf("%w: %w", errTrimSession, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errSaveMessage, err)
	}

	return nil
}

// History reads the newest limit messages, oldest first.
func (s *SQLiteStore) History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	if limit <= 0 {
		limit = s.opts.MaxMessages
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content, sender, timestamp, metadata
		FROM conversation_messages
		WHERE session_id = ? AND expires_at > ?
		ORDER BY id DESC
		LIMIT ?`, sessionID, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errQueryMessages, err)
	}
	defer rows.Close()

	var newestFirst []models.ChatMessage

	for rows.Next() {
		var (
			msg      models.ChatMessage
			sender   string
			metadata sql.NullString
		)

		if err := rows.Scan(&msg.Content, &sender, &msg.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("%w: %w", errScanRow, err)
		}

		msg.Sender = models.Sender(sender)

		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				// unreadable metadata does not invalidate the message
				msg.Metadata = nil
			}
		}

		newestFirst = append(newestFirst, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errQueryMessages, err)
	}

	out := make([]models.ChatMessage, len(newestFirst))
	for i := range newestFirst {
		out[len(newestFirst)-1-i] = newestFirst[i]
	}

	return out, nil
}

// Count returns the retained message count.
func (s *SQLiteStore) Count(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	var count int

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversation_messages
		WHERE session_id = ? AND expires_at > ?`,
		sessionID, time.Now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errQueryMessages, err)
	}

	return count, nil
}

// Clear deletes the session's history.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM conversation_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("%w: %w", errClearSession, err)
	}

	return nil
}

// Close stops the sweep and closes the database.
func (s *SQLiteStore) Close() error {
	s.cron.Stop()
	return s.db.Close()
}

func (s *SQLiteStore) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), dbOperationTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM conversation_messages WHERE expires_at <= ?`, time.Now())
	if err != nil {
		s.logger.Warn("session expiry sweep failed", zap.Error(err))
		return
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("swept expired messages", zap.Int64("count", n))
	}
}
