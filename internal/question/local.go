package question

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// operand ranges per difficulty level.
var localRanges = map[int]struct{ lo, hi int }{
	1: {1, 9},
	2: {2, 20},
	3: {5, 50},
	4: {10, 99},
	5: {12, 250},
}

// Local is an offline arithmetic generator used by the interactive CLI
// and as the fallback when a remote generator fails.
type Local struct {
	rng *rand.Rand
}

// NewLocal builds a Local generator. rng must not be nil.
func NewLocal(rng *rand.Rand) *Local {
	return &Local{rng: rng}
}

func (l *Local) Generate(_ context.Context, topicID string, level int) (*Question, error) {
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	r := localRanges[level]
	a := r.lo + l.rng.Intn(r.hi-r.lo+1)
	b := r.lo + l.rng.Intn(r.hi-r.lo+1)

	var prompt string
	var answer int
	switch {
	case level >= 4 && l.rng.Intn(2) == 0:
		prompt = fmt.Sprintf("[%s] %d × %d = ?", topicID, a, b)
		answer = a * b
	case level >= 2 && l.rng.Intn(2) == 0:
		// Keep subtraction results non-negative.
		if b > a {
			a, b = b, a
		}
		prompt = fmt.Sprintf("[%s] %d − %d = ?", topicID, a, b)
		answer = a - b
	default:
		prompt = fmt.Sprintf("[%s] %d + %d = ?", topicID, a, b)
		answer = a + b
	}

	want := fmt.Sprintf("%d", answer)
	return &Question{
		ID:     uuid.NewString(),
		Prompt: prompt,
		Answer: want,
		Check: func(got string) bool {
			return NormalizeAnswer(got) == want
		},
	}, nil
}
