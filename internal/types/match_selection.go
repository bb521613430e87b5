package types

// MatchSelection is the transient handoff payload created by the pre-chat
// selection flow and consumed exactly once by the first chat turn.
type MatchSelection struct {
	MortalData        map[string]any `json:"mortal_data"`
	MatchData         map[string]any `json:"match_data"`
	CompatibilityData map[string]any `json:"compatibility_data"`
	SelectedMatchID   string         `json:"selected_match_id"`
}
