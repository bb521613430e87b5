package matchsession

import (
	"context"
	"sync"

	"github.com/cupidlabs/cupid-backend/internal/types"
	"github.com/google/uuid"
)

// MemoryStore is the default in-process Store implementation.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*types.MatchSelection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*types.MatchSelection)}
}

func (s *MemoryStore) Store(_ context.Context, selection *types.MatchSelection) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = selection
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Consume(_ context.Context, sessionID string) (*types.MatchSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	selection, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.sessions, sessionID)
	return selection, nil
}
