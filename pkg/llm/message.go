package llm

import (
	"errors"
	"fmt"
)

// Message represents a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The turn's text body
}

// ErrEmptyContent is returned when a turn carries no text.
var ErrEmptyContent = errors.New("content must not be empty")

// UserMessage builds a turn authored by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a turn authored by the model.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage builds an instructional turn.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ValidateHistory checks that every turn may be replayed as prior history:
// only user and assistant roles, each with non-empty content.
func ValidateHistory(history []Message) error {
	for i, m := range history {
		if !m.Role.IsHistory() {
			return fmt.Errorf("history[%d]: role %q is not allowed in history", i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("history[%d]: %w", i, ErrEmptyContent)
		}
	}
	return nil
}
