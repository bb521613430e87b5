package agents

import (
	"strings"
	"testing"
)

func TestInstructionsWith(t *testing.T) {
	agent := &Agent{Instructions: "Scene {{state.scene_number}} at {{state.compatibility}} percent."}

	got := agent.InstructionsWith(map[string]string{
		"state.scene_number":  "3",
		"state.compatibility": "72",
	})
	if got != "Scene 3 at 72 percent." {
		t.Fatalf("substitution: got=%q", got)
	}

	if static := agent.InstructionsWith(nil); static != agent.Instructions {
		t.Fatalf("nil vars should return the template verbatim")
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry("gpt-5.1")

	narrative := []*Agent{
		reg.Introduction, reg.Mortal, reg.Match, reg.StartCupidGame,
		reg.CupidGame, reg.CupidEvaluation, reg.End,
	}
	for _, a := range narrative {
		if a == nil {
			t.Fatalf("narrative agent missing from registry")
		}
		if a.Model != "gpt-5.1" {
			t.Fatalf("%s model: got=%q", a.Name, a.Model)
		}
		if a.Schema != nil {
			t.Fatalf("%s should stream free text, has schema %q", a.Name, a.Schema.Name)
		}
	}

	structured := map[string]*Agent{
		"DisplayMortal":            reg.DisplayMortal,
		"DisplayMatch":             reg.DisplayMatch,
		"DisplayContinueCard":      reg.DisplayContinue,
		"DisplayCompatibilityCard": reg.DisplayCompat,
		"DisplayChoices":           reg.DisplayChoices,
		"GameDashboard":            reg.GameDashboard,
		"EvaluateSceneScore":       reg.EvaluateScene,
		"HasEnded":                 reg.HasEnded,
	}
	for wantName, a := range structured {
		if a == nil {
			t.Fatalf("structured agent %q missing", wantName)
		}
		if a.Name != wantName {
			t.Fatalf("agent name: want=%q got=%q", wantName, a.Name)
		}
		if a.Schema == nil || a.Schema.Name == "" || len(a.Schema.Definition) == 0 {
			t.Fatalf("%s has no output schema", wantName)
		}
	}

	// Scene evaluation reads the transcript excerpt, the dashboard also
	// takes the computed delta.
	if !strings.Contains(reg.EvaluateScene.Instructions, "{{scene}}") {
		t.Fatalf("EvaluateSceneScore instructions missing scene placeholder")
	}
	if !strings.Contains(reg.GameDashboard.Instructions, "{{delta}}") {
		t.Fatalf("GameDashboard instructions missing delta placeholder")
	}
}
