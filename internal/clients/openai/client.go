package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cupidlabs/cupid-backend/internal/agents"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/utils"
	oai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

// Config carries the provider settings for the completion client.
type Config struct {
	APIKey  string
	BaseURL string
}

// ConfigFromEnv reads OPENAI_API_KEY and OPENAI_BASE_URL.
func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		APIKey:  utils.GetEnv("OPENAI_API_KEY", "", log),
		BaseURL: utils.GetEnv("OPENAI_BASE_URL", "", log),
	}
}

// Client runs agent calls against the OpenAI Responses API. It implements
// agents.Runner.
type Client struct {
	client oai.Client
	log    *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	opts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}
	return &Client{client: oai.NewClient(opts...), log: log}, nil
}

func (c *Client) buildParams(call agents.Call) (oresponses.ResponseNewParams, error) {
	agent := call.Agent
	if agent == nil {
		return oresponses.ResponseNewParams{}, errors.New("nil agent")
	}
	if strings.TrimSpace(agent.Model) == "" {
		return oresponses.ResponseNewParams{}, fmt.Errorf("agent %s has no model", agent.Name)
	}

	params := oresponses.ResponseNewParams{
		Model:        oshared.ResponsesModel(strings.TrimSpace(agent.Model)),
		Instructions: oai.String(agent.InstructionsWith(call.Vars)),
	}
	if agent.ReasoningEffort != "" {
		params.Reasoning = oshared.ReasoningParam{Effort: oshared.ReasoningEffort(agent.ReasoningEffort)}
	}

	items := make(oresponses.ResponseInputParam, 0, len(call.Input)+1)
	for _, msg := range call.Input {
		txt := strings.TrimSpace(msg.Content)
		if txt == "" {
			continue
		}
		role := oresponses.EasyInputMessageRoleUser
		switch msg.Role {
		case agents.RoleAssistant:
			role = oresponses.EasyInputMessageRoleAssistant
		case agents.RoleSystem:
			role = oresponses.EasyInputMessageRoleSystem
		}
		items = append(items, oresponses.ResponseInputItemParamOfMessage(txt, role))
	}
	if len(items) == 0 {
		items = append(items, oresponses.ResponseInputItemParamOfMessage("Continue.", oresponses.EasyInputMessageRoleUser))
	}
	params.Input = oresponses.ResponseNewParamsInputUnion{OfInputItemList: items}

	if agent.Schema != nil {
		cfg := oresponses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   agent.Schema.Name,
			Schema: agent.Schema.Definition,
			Strict: oai.Bool(true),
		}
		params.Text = oresponses.ResponseTextConfigParam{
			Format: oresponses.ResponseFormatTextConfigUnionParam{OfJSONSchema: &cfg},
		}
	}
	return params, nil
}

// Run executes the call and returns the full completion.
func (c *Client) Run(ctx context.Context, call agents.Call) (*agents.Completion, error) {
	return c.RunStreamed(ctx, call, nil)
}

// RunStreamed executes the call, invoking onDelta for each output text delta
// as it arrives. Structured-output calls stream too; callers that only want
// the decoded payload can pass a nil onDelta.
func (c *Client) RunStreamed(ctx context.Context, call agents.Call, onDelta func(string)) (*agents.Completion, error) {
	params, err := c.buildParams(call)
	if err != nil {
		return nil, err
	}

	stream := c.client.Responses.NewStreaming(ctx, params)
	var buf strings.Builder
	for stream.Next() {
		event := stream.Current()
		if event.Type != "response.output_text.delta" {
			continue
		}
		delta := event.Delta.OfString
		if delta == "" {
			continue
		}
		buf.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		c.log.Error("agent call failed", "agent", call.Agent.Name, "error", err)
		return nil, fmt.Errorf("agent %s: %w", call.Agent.Name, err)
	}

	text := buf.String()
	completion := &agents.Completion{Text: text}
	if call.Agent.Schema != nil {
		raw := strings.TrimSpace(text)
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("agent %s: structured output is not valid JSON", call.Agent.Name)
		}
		completion.Raw = json.RawMessage(raw)
	}
	return completion, nil
}
