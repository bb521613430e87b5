package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the normalized player input for one turn. Exactly one shape per
// incoming request; unrecognized widget actions normalize to a no-op.
type Action struct {
	// UserText is the message appended to the thread as the player's turn.
	// Empty for no-op actions.
	UserText string
	// HiddenContext, when set, is appended as a hidden-context item so the
	// agents see the structured selection without surfacing it in the UI.
	HiddenContext string
	// NoOp reports that the turn changes nothing: no items, no state.
	NoOp bool
}

const (
	widgetActionContinue     = "continue"
	widgetActionChoiceSelect = "choice.select"
	widgetActionLegacyMsg    = "conversation.message"
)

// NormalizeMessage wraps a free-text player message.
func NormalizeMessage(text string) Action {
	return Action{UserText: text}
}

// NormalizeWidgetAction maps a widget action to its turn input. Continue
// becomes the literal "Continue", a choice selection becomes "KEY - Title"
// plus a hidden-context record of the structured pick, a legacy
// conversation.message carries its text payload, and anything else is a
// no-op.
func NormalizeWidgetAction(actionType string, payload map[string]any) Action {
	switch actionType {
	case widgetActionContinue:
		return Action{UserText: "Continue"}
	case widgetActionChoiceSelect:
		key, _ := payload["key"].(string)
		title, _ := payload["title"].(string)
		key = strings.TrimSpace(key)
		title = strings.TrimSpace(title)
		raw, _ := json.Marshal(map[string]any{"type": widgetActionChoiceSelect, "key": key, "title": title})
		return Action{
			UserText:      fmt.Sprintf("%s - %s", key, title),
			HiddenContext: string(raw),
		}
	case widgetActionLegacyMsg:
		text, ok := payload["text"].(string)
		if !ok {
			text = "Continue"
		}
		return Action{UserText: text}
	default:
		return Action{NoOp: true}
	}
}
