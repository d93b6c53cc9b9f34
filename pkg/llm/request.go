package llm

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string    `json:"message"`           // The new user message (required)
	History []Message `json:"history,omitempty"` // Prior turns, oldest first
}
