package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/beacon/internal/domain"
)

// SQLiteSenderStore implements SenderStore backed by SQLite.
type SQLiteSenderStore struct {
	db *DB
}

func NewSQLiteSenderStore(db *DB) *SQLiteSenderStore {
	return &SQLiteSenderStore{db: db}
}

// GetOrCreate upserts a sender record. A non-empty name refreshes the
// stored one.
func (s *SQLiteSenderStore) GetOrCreate(ctx context.Context, id, name string) (*domain.Sender, error) {
	now := time.Now().Format(time.DateTime)
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO senders (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE senders.name END,
			updated_at = excluded.updated_at`,
		id, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting sender %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteSenderStore) Get(ctx context.Context, id string) (*domain.Sender, error) {
	var sender domain.Sender
	var isAdmin int
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, name, is_admin, info FROM senders WHERE id = ?`, id,
	).Scan(&sender.ID, &sender.Name, &isAdmin, &sender.Info)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading sender %s: %w", id, err)
	}
	sender.IsAdmin = isAdmin != 0
	return &sender, nil
}

// SaveInfo replaces the sender's stored profile text.
func (s *SQLiteSenderStore) SaveInfo(ctx context.Context, id, info string) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE senders SET info = ?, updated_at = ? WHERE id = ?`,
		info, time.Now().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("saving info for sender %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdmin grants or revokes the sender's admin flag.
func (s *SQLiteSenderStore) SetAdmin(ctx context.Context, id string, admin bool) error {
	flag := 0
	if admin {
		flag = 1
	}
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE senders SET is_admin = ?, updated_at = ? WHERE id = ?`,
		flag, time.Now().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("setting admin for sender %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
