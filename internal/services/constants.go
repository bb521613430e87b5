package services

// AgentCategories groups the game's agents for the analytics UI.
var AgentCategories = map[string]string{
	"HasEnded":                 "routing",
	"StartCupidGame":           "control",
	"Introduction":             "content",
	"DisplayMortal":            "ui",
	"Mortal":                   "content",
	"DisplayMatch":             "ui",
	"Match":                    "content",
	"DisplayCompatibilityCard": "ui",
	"CompatibilityAnalysis":    "content",
	"DisplayChoices":           "ui",
	"CupidEvaluation":          "content",
	"End":                      "control",
}

// ChapterNames maps chapter numbers to their display names.
var ChapterNames = map[int]string{
	0: "Introduction",
	1: "Mortal",
	2: "Match",
	3: "Compatibility",
	4: "Story",
	5: "Evaluation",
	6: "End",
}

// AgentCategory returns the category for an agent, "other" when unknown.
func AgentCategory(name string) string {
	if cat, ok := AgentCategories[name]; ok {
		return cat
	}
	return "other"
}
