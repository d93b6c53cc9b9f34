package llm

// ChatResponse is the successful reply from POST /api/chat.
// History is the request history followed by the new user turn and the new
// assistant turn; callers hold it for the next round.
type ChatResponse struct {
	Content string    `json:"content"`
	History []Message `json:"history"`
}
