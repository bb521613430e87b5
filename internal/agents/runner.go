package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one chronological input block for the completion runner.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the result of one agent run. Text carries the output text;
// Raw carries the structured-output JSON when the agent declares a schema.
type Completion struct {
	Text string
	Raw  json.RawMessage
}

// Decode unmarshals the structured output into v.
func (c *Completion) Decode(v any) error {
	if len(c.Raw) == 0 {
		return fmt.Errorf("completion has no structured output")
	}
	return json.Unmarshal(c.Raw, v)
}

// Call binds an agent to one invocation's input and instruction variables.
type Call struct {
	Agent *Agent
	Vars  map[string]string // nil for agents with static instructions
	Input []Message
}

// Runner executes agent calls against the hosted completion service.
// RunStreamed delivers output text deltas through onDelta as they arrive
// and still returns the full completion.
type Runner interface {
	Run(ctx context.Context, call Call) (*Completion, error)
	RunStreamed(ctx context.Context, call Call, onDelta func(delta string)) (*Completion, error)
}

// Schema names and declares a JSON schema the structured output must
// validate against.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Agent is one immutable registry entry. Instructions may contain {{key}}
// placeholders substituted per call from a typed vars struct.
type Agent struct {
	Name            string
	Model           string
	Instructions    string
	Schema          *Schema
	ReasoningEffort string
}

// InstructionsWith renders the instruction template against vars. Static
// agents pass nil and get the template back verbatim.
func (a *Agent) InstructionsWith(vars map[string]string) string {
	if len(vars) == 0 {
		return a.Instructions
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(a.Instructions)
}
