package agents

// Structured output payloads for agents that declare a schema. Field names
// follow the wire format the widget builders consume.

type Origin struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type AstrologicalNotes struct {
	SunSign   string `json:"sun_sign"`
	MoonSign  string `json:"moon_sign"`
	VenusSign string `json:"venus_sign"`
	MarsSign  string `json:"mars_sign"`
}

// ProfileCardOutput is produced by DisplayMortal and DisplayMatch.
type ProfileCardOutput struct {
	Name              string            `json:"name"`
	Age               float64           `json:"age"`
	Occupation        string            `json:"occupation"`
	Location          string            `json:"location"`
	Birthdate         string            `json:"birthdate"`
	Origin            Origin            `json:"origin"`
	AstrologicalNotes AstrologicalNotes `json:"astrological_notes"`
}

type ContinueCardOutput struct {
	ConfirmationMessage string `json:"confirmation_message"`
}

type ChoiceItem struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

type ChoicesOutput struct {
	Items []ChoiceItem `json:"items"`
}

type CompatibilityItem struct {
	ID          string  `json:"id"`
	LeftEmoji   string  `json:"leftEmoji"`
	LeftZodiac  string  `json:"leftZodiac"`
	RightZodiac string  `json:"rightZodiac"`
	RightEmoji  string  `json:"rightEmoji"`
	Percent     float64 `json:"percent"`
	Color       string  `json:"color"`
}

type CompatibilityCardOutput struct {
	Title    string              `json:"title"`
	Subtitle string              `json:"subtitle"`
	Overall  float64             `json:"overall"`
	Items    []CompatibilityItem `json:"items"`
}

type SceneRef struct {
	Number float64 `json:"number"`
	Name   string  `json:"name"`
}

type Delta struct {
	Value     float64 `json:"value"`
	Direction string  `json:"direction"`
}

type Bar struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

type Pill struct {
	ID    string  `json:"id"`
	Icon  string  `json:"icon"`
	Value float64 `json:"value"`
}

// GameDashboardOutput feeds the compatibility snapshot widget shown once
// per story scene.
type GameDashboardOutput struct {
	Scene         SceneRef `json:"scene"`
	Compatibility float64  `json:"compatibility"`
	Delta         Delta    `json:"delta"`
	Bars          []Bar    `json:"bars"`
	Pills         []Pill   `json:"pills"`
}

// SceneScoreOutput carries the signed compatibility delta for one scene.
// Score is a string on the wire; callers parse it and ignore garbage.
type SceneScoreOutput struct {
	Score                string `json:"score"`
	Reasoning            string `json:"reasoning"`
	CurrentCompatibility string `json:"current-compatibility"`
}

type HasEndedOutput struct {
	HasEnded bool `json:"has_ended"`
}
