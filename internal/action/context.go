package action

import (
	"context"

	"github.com/soyeahso/beacon/internal/domain"
)

// TurnReader is the read side of the persisted history that actions may
// consult.
type TurnReader interface {
	// Get returns a single turn by id within the session.
	Get(ctx context.Context, sessionID string, id int64) (*domain.Turn, error)

	// Search returns turns whose content matches keyword, newest first,
	// plus the total match count.
	Search(ctx context.Context, sessionID, keyword string, limit, offset int) ([]domain.Turn, int, error)
}

// SenderReader exposes sender records to actions.
type SenderReader interface {
	Get(ctx context.Context, id string) (*domain.Sender, error)
	SaveInfo(ctx context.Context, id, info string) error
}

// Context is the narrow controller surface an action runs against. The
// repository fields may be nil when the host does not provide them;
// builtins treat that as an unavailable capability.
type Context struct {
	SessionID string
	SenderID  string
	Model     string

	Turns   TurnReader
	Senders SenderReader

	// SetModel switches the session model and re-applies the token
	// budget. Nil outside a live controller.
	SetModel func(model string) error
}
