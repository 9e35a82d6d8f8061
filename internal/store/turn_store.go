package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/beacon/internal/domain"
)

// SQLiteTurnStore implements TurnStore backed by SQLite.
type SQLiteTurnStore struct {
	db *DB
}

func NewSQLiteTurnStore(db *DB) *SQLiteTurnStore {
	return &SQLiteTurnStore{db: db}
}

// Find returns up to limit of the most recent turns, oldest first.
func (s *SQLiteTurnStore) Find(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, session_id, role, content, tool_call_name, tool_call_args, tool_name, sender_id, tokens, timestamp
		 FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading turns for session %s: %w", sessionID, err)
	}
	// DESC query, flip back to chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Create inserts a turn and assigns its ID.
func (s *SQLiteTurnStore) Create(ctx context.Context, t *domain.Turn) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	var callName, callArgs sql.NullString
	if t.ToolCall != nil {
		callName = sql.NullString{String: t.ToolCall.Name, Valid: true}
		callArgs = sql.NullString{String: t.ToolCall.Arguments, Valid: true}
	}

	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, tool_call_name, tool_call_args, tool_name, sender_id, tokens, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Role, t.Content, callName, callArgs,
		nullable(t.ToolName), nullable(t.SenderID), t.Tokens,
		t.Timestamp.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("creating turn in session %s: %w", t.SessionID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading turn id: %w", err)
	}
	t.ID = id

	_, _ = s.db.sql.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.DateTime), t.SessionID,
	)
	return nil
}

// Save rewrites a persisted turn's content and token count. Used when
// the budgeter replaces an over-long body with a placeholder.
func (s *SQLiteTurnStore) Save(ctx context.Context, t *domain.Turn) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE turns SET content = ?, tokens = ? WHERE id = ? AND session_id = ?`,
		t.Content, t.Tokens, t.ID, t.SessionID,
	)
	if err != nil {
		return fmt.Errorf("saving turn %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a single turn by id within the session.
func (s *SQLiteTurnStore) Get(ctx context.Context, sessionID string, id int64) (*domain.Turn, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, session_id, role, content, tool_call_name, tool_call_args, tool_name, sender_id, tokens, timestamp
		 FROM turns WHERE session_id = ? AND id = ?`,
		sessionID, id,
	)
	t, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Search returns turns whose content matches keyword, newest first,
// plus the total match count.
func (s *SQLiteTurnStore) Search(ctx context.Context, sessionID, keyword string, limit, offset int) ([]domain.Turn, int, error) {
	pattern := "%" + keyword + "%"

	var total int
	if err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = ? AND content LIKE ?`,
		sessionID, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting search matches: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, session_id, role, content, tool_call_name, tool_call_args, tool_name, sender_id, tokens, timestamp
		 FROM turns WHERE session_id = ? AND content LIKE ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		sessionID, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("searching turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, 0, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("searching turns: %w", err)
	}
	return turns, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (domain.Turn, error) {
	var t domain.Turn
	var callName, callArgs, toolName, senderID sql.NullString
	var ts string

	err := row.Scan(
		&t.ID, &t.SessionID, &t.Role, &t.Content,
		&callName, &callArgs, &toolName, &senderID, &t.Tokens, &ts,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scanning turn: %w", err)
	}
	if callName.Valid {
		t.ToolCall = &domain.ToolCall{Name: callName.String, Arguments: callArgs.String}
	}
	t.ToolName = toolName.String
	t.SenderID = senderID.String
	t.Timestamp, _ = time.Parse(time.DateTime, ts)
	return t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
