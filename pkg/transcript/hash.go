package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/finassist/finassist/pkg/llm"
)

// link is the canonical hash input for one turn. Chaining each turn to its
// parent's hash makes the head hash cover the full ordered history.
type link struct {
	Parent  string   `json:"parent,omitempty"`
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// Head computes the SHA-256 hash chained over turns, hex-encoded.
// An empty sequence hashes to the empty string.
func Head(turns []llm.Message) string {
	var parent string
	for _, m := range turns {
		parent = hashLink(link{Parent: parent, Role: m.Role, Content: m.Content})
	}
	return parent
}

func hashLink(l link) string {
	// Canonical JSON encoding for deterministic hashing
	data, err := json.Marshal(l)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
