// Package completion talks to a hosted, OpenAI-compatible chat completion API.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/finassist/finassist/pkg/llm"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// ErrMissingAPIKey is returned when no credential was configured.
var ErrMissingAPIKey = errors.New("completion: api key is required")

// Request is a single completion call.
type Request struct {
	Model       string
	Temperature float32
	MaxTokens   int

	// Messages are sent in order, oldest first.
	Messages []llm.Message
}

// Completer generates the next assistant turn for a conversation.
// An empty string with a nil error means the API returned no content.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey string

	// BaseURL of the API, DefaultBaseURL when empty.
	BaseURL string

	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration
}

// Compile-time interface guard.
var _ Completer = (*OpenAI)(nil)

// OpenAI implements Completer over the chat completions API.
type OpenAI struct {
	client *openai.Client
	logger *zap.Logger
}

// NewOpenAI creates a client. It does not contact the API.
func NewOpenAI(cfg Config, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		logger: logger,
	}, nil
}

// Complete sends the messages and returns the first choice's text.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		role, err := toOpenAIRole(m.Role)
		if err != nil {
			return "", fmt.Errorf("messages[%d]: %w", i, err)
		}
		messages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", mapError(err)
	}

	o.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int("choices", len(resp.Choices)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

func toOpenAIRole(r llm.Role) (string, error) {
	switch r {
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem, nil
	case llm.RoleUser:
		return openai.ChatMessageRoleUser, nil
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant, nil
	}
	return "", fmt.Errorf("unknown role %q", r)
}
