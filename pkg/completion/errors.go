package completion

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// StatusError is an upstream failure. StatusCode is the HTTP status the API
// answered with, or 0 when no response was received.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("completion: %v", e.Err)
	}
	return fmt.Sprintf("completion: upstream status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// mapError attaches the upstream HTTP status to client errors.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &StatusError{Err: err}
}
