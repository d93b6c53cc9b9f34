// Package transcript holds a caller-owned conversation log.
//
// A Transcript lives only in the memory of whoever is chatting (a terminal
// client, the MCP host, a browser). It is append-only and is replayed to the
// proxy in full on every turn; nothing about it is kept server-side.
package transcript

import (
	"slices"

	"github.com/finassist/finassist/pkg/llm"
)

// Transcript is an ordered, append-only sequence of turns.
type Transcript struct {
	turns []llm.Message
}

// New creates a transcript seeded with the given turns.
func New(turns ...llm.Message) *Transcript {
	return &Transcript{turns: slices.Clone(turns)}
}

// Append adds turns to the end of the transcript.
func (t *Transcript) Append(turns ...llm.Message) {
	t.turns = append(t.turns, turns...)
}

// Turns returns a copy of every turn in chronological order.
func (t *Transcript) Turns() []llm.Message {
	return slices.Clone(t.turns)
}

// Wire returns the turns that may be sent as history to the chat proxy.
// System turns are dropped; the proxy injects its own.
func (t *Transcript) Wire() []llm.Message {
	wire := make([]llm.Message, 0, len(t.turns))
	for _, m := range t.turns {
		if !m.Role.IsHistory() {
			continue
		}
		wire = append(wire, llm.Message{Role: m.Role, Content: m.Content})
	}
	return wire
}

// Reset discards all turns and starts over from the given seed.
func (t *Transcript) Reset(seed ...llm.Message) {
	t.turns = slices.Clone(seed)
}
