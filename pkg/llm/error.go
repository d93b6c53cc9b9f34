// Package llm provides the wire representations of chat turns, requests and
// responses shared by the proxy, its clients and the completion client.
package llm

// ErrorResponse is the JSON body of every non-200 chat response.
type ErrorResponse struct {
	Error string `json:"error"`
}
