package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/beacon/internal/domain"
)

// SQLiteSessionStore implements SessionStore backed by SQLite.
type SQLiteSessionStore struct {
	db *DB
}

func NewSQLiteSessionStore(db *DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// GetOrCreate finds an existing session by key or creates a new one.
func (s *SQLiteSessionStore) GetOrCreate(ctx context.Context, key domain.SessionKey, model, prompt string) (*domain.Session, error) {
	keyStr := key.String()

	var sess domain.Session
	var createdAt, updatedAt string
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, platform_id, chat_id, sender_id, model, prompt, created_at, updated_at
		 FROM sessions WHERE key_str = ?`, keyStr,
	).Scan(
		&sess.ID, &sess.Key.PlatformID, &sess.Key.ChatID, &sess.Key.SenderID,
		&sess.Model, &sess.Prompt, &createdAt, &updatedAt,
	)
	if err == nil {
		sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		return &sess, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up session %s: %w", keyStr, err)
	}

	sess = domain.Session{
		ID:        uuid.New().String(),
		Key:       key,
		Model:     model,
		Prompt:    prompt,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO sessions (id, key_str, platform_id, chat_id, sender_id, model, prompt, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, keyStr, key.PlatformID, key.ChatID, key.SenderID, model, prompt,
		sess.CreatedAt.Format(time.DateTime), sess.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session %s: %w", keyStr, err)
	}
	return &sess, nil
}

// SaveModel records a model switch for the session.
func (s *SQLiteSessionStore) SaveModel(ctx context.Context, sessionID, model string) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE sessions SET model = ?, updated_at = ? WHERE id = ?`,
		model, time.Now().Format(time.DateTime), sessionID,
	)
	if err != nil {
		return fmt.Errorf("saving model for session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
