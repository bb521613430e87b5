package matchsession

import (
	"context"
	"errors"
	"testing"

	"github.com/cupidlabs/cupid-backend/internal/types"
)

func TestMemoryStoreConsumeOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	selection := &types.MatchSelection{
		MortalData:        map[string]any{"name": "Seraphina Cole"},
		MatchData:         map[string]any{"name": "Ethan Murphy"},
		CompatibilityData: map[string]any{"overall_compatibility": 74},
		SelectedMatchID:   "ethan_murphy",
	}

	id, err := store.Store(ctx, selection)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id == "" {
		t.Fatalf("Store returned empty id")
	}

	got, err := store.Consume(ctx, id)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.SelectedMatchID != "ethan_murphy" {
		t.Fatalf("selected match: got=%q", got.SelectedMatchID)
	}

	if _, err := store.Consume(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Consume: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConsumeUnknownID(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Consume(context.Background(), "no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
