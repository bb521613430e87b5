package game

import (
	"strings"

	"github.com/cupidlabs/cupid-backend/internal/agents"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

// Convert turns a thread's item history into runner input. Items arrive
// oldest-first. Hidden-context items become system messages so the agents
// see structured selections the UI never renders; widget items contribute
// their copy text as assistant turns.
func Convert(items []*types.ThreadItem) []agents.Message {
	out := make([]agents.Message, 0, len(items))
	for _, item := range items {
		switch item.Kind {
		case types.ItemKindUserMessage:
			if item.Text != "" {
				out = append(out, agents.Message{Role: agents.RoleUser, Content: item.Text})
			}
		case types.ItemKindAssistantMessage:
			if item.Text != "" {
				out = append(out, agents.Message{Role: agents.RoleAssistant, Content: item.Text})
			}
		case types.ItemKindWidget:
			if txt := strings.TrimSpace(item.CopyText); txt != "" {
				out = append(out, agents.Message{Role: agents.RoleAssistant, Content: txt})
			}
		case types.ItemKindHiddenContext:
			if item.Text != "" {
				out = append(out, agents.Message{Role: agents.RoleSystem, Content: item.Text})
			}
		}
	}
	return out
}
