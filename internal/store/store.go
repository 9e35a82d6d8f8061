package store

import (
	"context"
	"errors"

	"github.com/soyeahso/beacon/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// SessionStore persists conversation sessions keyed by platform, chat
// and sender.
type SessionStore interface {
	// GetOrCreate finds an existing session by key or creates one with
	// the given model and prompt.
	GetOrCreate(ctx context.Context, key domain.SessionKey, model, prompt string) (*domain.Session, error)

	// SaveModel records a model switch for the session.
	SaveModel(ctx context.Context, sessionID, model string) error
}

// TurnStore persists the turns of a session.
type TurnStore interface {
	// Find returns up to limit of the most recent turns, oldest first.
	Find(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// Create inserts a turn and assigns its ID.
	Create(ctx context.Context, t *domain.Turn) error

	// Save rewrites a persisted turn's content and token count.
	Save(ctx context.Context, t *domain.Turn) error

	// Get returns a single turn by id within the session.
	Get(ctx context.Context, sessionID string, id int64) (*domain.Turn, error)

	// Search returns turns whose content matches keyword, newest first,
	// plus the total match count.
	Search(ctx context.Context, sessionID, keyword string, limit, offset int) ([]domain.Turn, int, error)
}

// SenderStore persists the people (or systems) a session talks to.
type SenderStore interface {
	// GetOrCreate upserts a sender record. A non-empty name refreshes
	// the stored one.
	GetOrCreate(ctx context.Context, id, name string) (*domain.Sender, error)

	Get(ctx context.Context, id string) (*domain.Sender, error)

	// SaveInfo replaces the sender's stored profile text.
	SaveInfo(ctx context.Context, id, info string) error

	// SetAdmin grants or revokes the sender's admin flag.
	SetAdmin(ctx context.Context, id string, admin bool) error
}
