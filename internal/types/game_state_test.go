package types

import "testing"

func TestGameStateMetadataRoundTrip(t *testing.T) {
	state := &GameState{
		Version:              GameStateVersion,
		Chapter:              ChapterStory,
		MortalData:           map[string]any{"name": "Seraphina Cole", "age": 29},
		MatchData:            map[string]any{"name": "Ethan Murphy"},
		CompatibilityData:    map[string]any{"overall_compatibility": 74},
		CurrentCompatibility: 71,
		SceneNumber:          3,
	}

	metadata := map[string]any{"unrelated": "keep me"}
	if err := state.WriteMetadata(metadata); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if metadata["unrelated"] != "keep me" {
		t.Fatalf("unrelated metadata key was clobbered")
	}

	got, ok := GameStateFromMetadata(metadata)
	if !ok {
		t.Fatalf("GameStateFromMetadata: state not found after write")
	}
	if got.Chapter != ChapterStory {
		t.Fatalf("chapter: want=%d got=%d", ChapterStory, got.Chapter)
	}
	if got.CurrentCompatibility != 71 {
		t.Fatalf("current compatibility: want=71 got=%d", got.CurrentCompatibility)
	}
	if got.SceneNumber != 3 {
		t.Fatalf("scene number: want=3 got=%d", got.SceneNumber)
	}
	if got.MortalData["name"] != "Seraphina Cole" {
		t.Fatalf("mortal name: got=%v", got.MortalData["name"])
	}
}

func TestGameStateFromMetadataMissing(t *testing.T) {
	if _, ok := GameStateFromMetadata(nil); ok {
		t.Fatalf("expected no state from nil metadata")
	}
	if _, ok := GameStateFromMetadata(map[string]any{}); ok {
		t.Fatalf("expected no state from empty metadata")
	}
}

func TestAdjustCompatibilityClamps(t *testing.T) {
	tests := []struct {
		name  string
		start int
		delta int
		want  int
	}{
		{"positive delta", 69, 4, 73},
		{"negative delta", 69, -10, 59},
		{"clamped at 100", 98, 7, 100},
		{"clamped at 0", 3, -9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &GameState{CurrentCompatibility: tt.start}
			s.AdjustCompatibility(tt.delta)
			if s.CurrentCompatibility != tt.want {
				t.Fatalf("want=%d got=%d", tt.want, s.CurrentCompatibility)
			}
		})
	}
}
