package types

import "time"

// Thread is one conversation/game session in the chat-thread store.
type Thread struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type ItemKind string

const (
	ItemKindUserMessage      ItemKind = "user_message"
	ItemKindAssistantMessage ItemKind = "assistant_message"
	ItemKindWidget           ItemKind = "widget"
	// ItemKindHiddenContext items are visible to agents but never shown to
	// the end user.
	ItemKindHiddenContext ItemKind = "hidden_context"
)

// ThreadItem is one ordered, append-only entry on a thread. Items are never
// mutated once appended.
type ThreadItem struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	Kind      ItemKind       `json:"kind"`
	Text      string         `json:"text,omitempty"`
	Widget    map[string]any `json:"widget,omitempty"`
	CopyText  string         `json:"copy_text,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
