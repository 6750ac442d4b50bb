package adaptive

import (
	"math/rand"

	"github.com/lberthe/cadence/internal/cognitive"
)

// Inputs carries everything the selector weighs for one question.
type Inputs struct {
	// Mastery is the raw topic mastery, 0-95.
	Mastery int

	// Retrievability is the FSRS recall probability for the topic.
	Retrievability float64

	CognitiveLoad cognitive.Load

	// RecentAccuracy is the accuracy over the last ~10 answers.
	RecentAccuracy float64

	// Streak is the signed consecutive-answer streak.
	Streak int

	// PerformanceLevel is the historical performance score in [0.3, 0.8].
	PerformanceLevel float64

	// EarlyGame marks a learner in their first days; combined with low
	// performance it caps the level at 2.
	EarlyGame bool
}

// Selector picks the difficulty level targeting the zone of proximal
// development: hard enough to challenge, easy enough to stay achievable.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a selector. rng drives the consolidation roll and
// may be nil to disable it.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Select computes the difficulty level from the inputs. Rules apply in a
// fixed order and later rules override earlier ones; that ordering is the
// tie-break policy.
//
// The mastery ladder caps at level 4: level 5 is reachable only through
// the accuracy and streak escalations below, so it stays an earned
// challenge rather than a default.
func (s *Selector) Select(in Inputs) int {
	// A struggling learner with mastery 50 should see questions matched
	// to how they are actually performing, not to the raw score.
	effective := float64(in.Mastery) * (0.7 + in.PerformanceLevel*0.6)

	level := 4
	switch {
	case effective < 15:
		level = 1
	case effective < 30:
		level = 2
	case effective < 50:
		level = 3
	}

	// Weak memory means this is a refresher, not a challenge.
	if in.Retrievability < 0.4 {
		level = maxInt(MinLevel, level-1)
	}

	// Overload ends the negotiation.
	if in.CognitiveLoad == cognitive.LoadOverload {
		return MinLevel
	}
	if in.CognitiveLoad == cognitive.LoadHigh {
		level = maxInt(MinLevel, level-1)
	}

	switch {
	case in.RecentAccuracy < 0.4:
		level = MinLevel
	case in.RecentAccuracy < 0.5:
		level = maxInt(MinLevel, level-1)
	case in.RecentAccuracy > 0.85 && in.Streak >= 5:
		level = minInt(MaxLevel, level+1)
	}

	switch {
	case in.Streak <= -4:
		level = MinLevel
	case in.Streak <= -2:
		level = maxInt(MinLevel, level-1)
	case in.Streak >= 6:
		level = minInt(MaxLevel, level+1)
	}

	// Early-game protection: no level 3+ for a struggling newcomer.
	if in.EarlyGame && in.PerformanceLevel < 0.5 {
		level = minInt(level, 2)
	}

	// Consolidation: high performers occasionally revisit fundamentals.
	if in.Mastery >= 80 && level >= 4 && s.rng != nil && s.rng.Float64() < 0.20 {
		level = 3
	}

	return level
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
