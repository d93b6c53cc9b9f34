// Package advisor implements the financial-advice chat turn: it validates a
// caller's message and history, wraps them in the advisor prompt, asks the
// completion API for a reply and classifies whatever goes wrong.
//
// The Advisor is stateless across calls. The caller owns the transcript and
// sends it back in full each time.
package advisor

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/finassist/finassist/pkg/completion"
	"github.com/finassist/finassist/pkg/llm"
)

// Advisor answers chat turns through a Completer.
type Advisor struct {
	completer completion.Completer
	profile   atomic.Pointer[Profile]
	logger    *zap.Logger
}

// New creates an Advisor. A nil completer is allowed: every Ask then fails
// with KindNotConfigured, so the process can still serve everything else.
func New(completer completion.Completer, profile Profile, logger *zap.Logger) *Advisor {
	a := &Advisor{
		completer: completer,
		logger:    logger,
	}
	a.profile.Store(&profile)
	return a
}

// Configured reports whether a completion client is available.
func (a *Advisor) Configured() bool {
	return a.completer != nil
}

// Profile returns the profile currently in effect.
func (a *Advisor) Profile() Profile {
	return *a.profile.Load()
}

// SetProfile replaces the profile for subsequent calls.
func (a *Advisor) SetProfile(p Profile) {
	a.profile.Store(&p)
}

// Ask runs one chat turn. On success the returned history is the input
// history followed by the new user turn and the new assistant turn.
// Failures are always *Error.
func (a *Advisor) Ask(ctx context.Context, message string, history []llm.Message) (*llm.ChatResponse, error) {
	if message == "" {
		return nil, invalidRequest(MessageRequired, nil)
	}
	if err := llm.ValidateHistory(history); err != nil {
		return nil, invalidRequest(err.Error(), err)
	}
	if a.completer == nil {
		return nil, notConfigured()
	}

	profile := a.Profile()
	user := llm.UserMessage(message)

	start := time.Now()
	content, err := a.completer.Complete(ctx, completion.Request{
		Model:       profile.Model,
		Temperature: profile.Temperature,
		MaxTokens:   profile.MaxTokens,
		Messages:    Outbound(profile, history, user),
	})
	if err != nil {
		classified := classify(err)
		a.logger.Error("completion failed",
			zap.String("kind", classified.Kind.String()),
			zap.Int("status", classified.Status),
			zap.Int("history_len", len(history)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, classified
	}

	if content == "" {
		a.logger.Warn("completion returned no content, using fallback",
			zap.String("model", profile.Model),
		)
		content = profile.Fallback
	}

	updated := make([]llm.Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated, user, llm.AssistantMessage(content))

	return &llm.ChatResponse{
		Content: content,
		History: updated,
	}, nil
}

// Outbound builds the sequence sent to the model: the profile's system turn,
// the prior history in order, then the new user turn.
func Outbound(profile Profile, history []llm.Message, user llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, llm.SystemMessage(profile.SystemPrompt))
	out = append(out, slices.Clone(history)...)
	return append(out, user)
}
