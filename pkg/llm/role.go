package llm

import (
	"encoding/json"
	"fmt"
)

// Role identifies who authored a turn in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// IsHistory reports whether a turn with this role may be carried in a
// client-held transcript. System turns are injected server-side only.
func (r Role) IsHistory() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// UnmarshalJSON rejects any role outside the closed set.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}

	role := Role(s)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", s)
	}

	*r = role
	return nil
}
