package chainy

import (
	"slices"

	"github.com/google/uuid"
)

// Transcript is an ordered, append-only list of turns.
// It is owned by a single Invoker and is not safe for concurrent use.
type Transcript struct {
	id    string
	turns []Turn
}

// NewTranscript creates a transcript seeded with turns.
func NewTranscript(turns ...Turn) *Transcript {
	return &Transcript{
		id:    uuid.NewString(),
		turns: slices.Clone(turns),
	}
}

// ID identifies the transcript in logs.
func (t *Transcript) ID() string { return t.id }

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }

// Turns returns a copy of all turns in order.
func (t *Transcript) Turns() []Turn { return slices.Clone(t.turns) }

// Last returns the final turn, or false if the transcript is empty.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Append adds turns at the end.
func (t *Transcript) Append(turns ...Turn) {
	t.turns = append(t.turns, turns...)
}
