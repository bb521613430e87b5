package matchsession

import (
	"context"
	"errors"

	"github.com/cupidlabs/cupid-backend/internal/types"
)

// ErrNotFound is returned when a session id is unknown or has already been
// consumed.
var ErrNotFound = errors.New("matchsession: not found")

// Store hands selection data from the picker flow to the chat flow. Each
// stored selection is consumable exactly once.
type Store interface {
	// Store saves the selection and returns its session id.
	Store(ctx context.Context, selection *types.MatchSelection) (string, error)
	// Consume returns the selection and removes it atomically. A second
	// Consume with the same id returns ErrNotFound.
	Consume(ctx context.Context, sessionID string) (*types.MatchSelection, error)
}
