package chatstore

import (
	"context"
	"sync"

	"github.com/cupidlabs/cupid-backend/internal/types"
	"github.com/google/uuid"
)

// MemoryStore is the in-process Store implementation. Threads live for the
// lifetime of the server.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*types.Thread
	items   map[string][]*types.ThreadItem // threadID -> items in append order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]*types.Thread),
		items:   make(map[string][]*types.ThreadItem),
	}
}

func (s *MemoryStore) CreateThread(_ context.Context, title string, metadata map[string]any) (*types.Thread, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	thread := &types.Thread{
		ID:        "thread_" + uuid.NewString(),
		Title:     title,
		Metadata:  metadata,
		CreatedAt: nowUTC(),
	}
	s.mu.Lock()
	s.threads[thread.ID] = copyThread(thread)
	s.mu.Unlock()
	return thread, nil
}

func (s *MemoryStore) GetThread(_ context.Context, id string) (*types.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return copyThread(thread), nil
}

func (s *MemoryStore) SaveThread(_ context.Context, thread *types.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.threads[thread.ID]
	if !ok {
		return ErrThreadNotFound
	}
	stored.Title = thread.Title
	stored.Metadata = copyMetadata(thread.Metadata)
	return nil
}

func (s *MemoryStore) AddItem(_ context.Context, threadID string, item *types.ThreadItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return ErrThreadNotFound
	}
	item.ID = "item_" + uuid.NewString()
	item.ThreadID = threadID
	item.CreatedAt = nowUTC()
	stored := *item
	s.items[threadID] = append(s.items[threadID], &stored)
	return nil
}

func (s *MemoryStore) ListItems(_ context.Context, threadID string, after string, limit int) ([]*types.ThreadItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.threads[threadID]; !ok {
		return nil, false, ErrThreadNotFound
	}
	all := s.items[threadID]

	// Newest first.
	start := len(all) - 1
	if after != "" {
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].ID == after {
				start = i - 1
				break
			}
		}
	}

	out := make([]*types.ThreadItem, 0, limit)
	i := start
	for ; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		copied := *all[i]
		out = append(out, &copied)
	}
	return out, i >= 0, nil
}

func copyThread(t *types.Thread) *types.Thread {
	copied := *t
	copied.Metadata = copyMetadata(t.Metadata)
	return &copied
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
