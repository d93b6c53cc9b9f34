package advisor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/finassist/finassist/pkg/completion"
)

// Kind classifies a failed Ask.
type Kind int

const (
	// KindInvalidRequest is a client error: missing message or a bad history.
	KindInvalidRequest Kind = iota
	// KindNotConfigured means no completion credential is available.
	KindNotConfigured
	// KindRateLimited is an upstream 429.
	KindRateLimited
	// KindUnauthorized is an upstream 401 or 403.
	KindUnauthorized
	// KindUpstream is any other upstream failure.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid-request"
	case KindNotConfigured:
		return "not-configured"
	case KindRateLimited:
		return "upstream-rate-limited"
	case KindUnauthorized:
		return "upstream-unauthorized"
	case KindUpstream:
		return "upstream-failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// User-facing error messages.
const (
	MessageRequired      = "Message is required"
	MessageNotConfigured = "GROQ_API_KEY is not configured in environment variables"
	MessageBusy          = "Our AI service is currently experiencing high demand. Please try again in a moment."
	MessageAuth          = "Authentication error with the AI service. Please contact support."
	MessageFailed        = "Failed to process financial advice request"
)

// Error is a failed Ask. Status and Message are what the caller should be
// shown; Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("advisor: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("advisor: %s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidRequest(message string, err error) *Error {
	return &Error{Kind: KindInvalidRequest, Status: http.StatusBadRequest, Message: message, Err: err}
}

func notConfigured() *Error {
	return &Error{Kind: KindNotConfigured, Status: http.StatusInternalServerError, Message: MessageNotConfigured}
}

// classify maps an upstream failure onto the user-facing taxonomy. The
// upstream status is forwarded, 500 when there was none.
func classify(err error) *Error {
	status := 0
	var se *completion.StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Message: MessageBusy, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindUnauthorized, Status: status, Message: MessageAuth, Err: err}
	}

	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: KindUpstream, Status: status, Message: MessageFailed, Err: err}
}
