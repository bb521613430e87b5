package chatstore

import (
	"context"
	"errors"
	"time"

	"github.com/cupidlabs/cupid-backend/internal/types"
)

// ErrThreadNotFound is returned for lookups against unknown thread ids.
var ErrThreadNotFound = errors.New("chatstore: thread not found")

// Store persists chat threads and their append-only item streams. Items
// list newest-first; After pages backwards through history.
type Store interface {
	CreateThread(ctx context.Context, title string, metadata map[string]any) (*types.Thread, error)
	GetThread(ctx context.Context, id string) (*types.Thread, error)
	// SaveThread durably persists the thread's title and metadata.
	SaveThread(ctx context.Context, thread *types.Thread) error
	// AddItem appends the item to the thread, assigning its id and
	// creation time.
	AddItem(ctx context.Context, threadID string, item *types.ThreadItem) error
	// ListItems returns up to limit items newest-first, starting after the
	// given item id when set. The bool reports whether more remain.
	ListItems(ctx context.Context, threadID string, after string, limit int) ([]*types.ThreadItem, bool, error)
}

func nowUTC() time.Time { return time.Now().UTC() }
