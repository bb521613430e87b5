package types

import "encoding/json"

// Chapter values, in narrative order. ChapterStory self-loops until the
// scene-end check says otherwise; everything >= ChapterEnd is terminal.
const (
	ChapterIntroduction  = 0
	ChapterMortal        = 1
	ChapterMatch         = 2
	ChapterCompatibility = 3
	ChapterStory         = 4
	ChapterEvaluation    = 5
	ChapterEnd           = 6
)

const GameStateVersion = 1

// gameStateKey is the thread-metadata key holding the serialized state.
const gameStateKey = "game_state"

// GameState is the authoritative per-thread game progression record. It
// lives inside the thread's metadata map and is re-derived on every turn;
// nothing else carries game state across requests.
type GameState struct {
	Version              int            `json:"version"`
	Chapter              int            `json:"chapter"`
	MortalData           map[string]any `json:"mortal_data"`
	MatchData            map[string]any `json:"match_data"`
	CompatibilityData    map[string]any `json:"compatibility_data"`
	CurrentCompatibility int            `json:"current_compatibility"`
	SceneNumber          int            `json:"scene_number"`
}

// AdjustCompatibility applies a signed delta, clamped to [0, 100].
func (s *GameState) AdjustCompatibility(delta int) {
	v := s.CurrentCompatibility + delta
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.CurrentCompatibility = v
}

// WriteMetadata serializes the state into the thread metadata map.
func (s *GameState) WriteMetadata(metadata map[string]any) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	metadata[gameStateKey] = m
	return nil
}

// GameStateFromMetadata reads the state back out of thread metadata.
// Returns false when the thread has no initialized state yet.
func GameStateFromMetadata(metadata map[string]any) (*GameState, bool) {
	if metadata == nil {
		return nil, false
	}
	entry, ok := metadata[gameStateKey]
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, false
	}
	var s GameState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}
