// Package feedback turns performance signals into short encouraging
// messages tuned to the learner's emotional state.
package feedback

import (
	"fmt"
	"math/rand"

	"github.com/lberthe/cadence/internal/cognitive"
)

// Emotion is a coarse read of the learner's state inferred from recent
// answers.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionConfident   Emotion = "confident"
	EmotionCelebrating Emotion = "celebrating"
	EmotionFrustrated  Emotion = "frustrated"
	EmotionDemotivated Emotion = "demotivated"
)

const minHistoryForEmotion = 5

// Detect infers the learner's emotional state. Checks run in a fixed
// priority order and the first match wins: a hot streak is celebrated
// even when the wider accuracy window looks shaky.
func Detect(history []cognitive.Response, correct bool, streak, consecutiveErrors int) Emotion {
	if len(history) < minHistoryForEmotion {
		return EmotionNeutral
	}

	recent := cognitive.Tail(history, 10)
	acc := cognitive.Accuracy(recent)

	if streak >= 10 || (correct && streak >= 5) {
		return EmotionCelebrating
	}

	if consecutiveErrors >= 3 || acc < 0.4 {
		return EmotionFrustrated
	}

	// Compare against the preceding 10-answer window when we have one.
	if len(history) >= 20 {
		prior := history[len(history)-20 : len(history)-10]
		if cognitive.Accuracy(prior)-acc >= 0.2 {
			return EmotionDemotivated
		}
	}

	if acc >= 0.75 && streak >= 3 {
		return EmotionConfident
	}
	return EmotionNeutral
}

var messages = map[Emotion]struct {
	correct   []string
	incorrect []string
}{
	EmotionNeutral: {
		correct: []string{
			"Correct!",
			"Nice work.",
			"That's right.",
			"Good, keep going.",
		},
		incorrect: []string{
			"Not quite, but that's how we learn.",
			"Close. Take another look at this one later.",
			"Wrong answer, right effort.",
		},
	},
	EmotionConfident: {
		correct: []string{
			"You're in a groove. Keep it up!",
			"Sharp as ever.",
			"Another one down. You make it look easy.",
		},
		incorrect: []string{
			"Even strong runs have bumps. Shake it off.",
			"A rare miss. You've got the next one.",
		},
	},
	EmotionCelebrating: {
		correct: []string{
			"On fire! What a streak!",
			"Unstoppable! Keep the run alive!",
			"Brilliant! You're crushing these.",
		},
		incorrect: []string{
			"The streak ends, but what a run that was!",
			"Great streak while it lasted. Start a new one!",
		},
	},
	EmotionFrustrated: {
		correct: []string{
			"There it is! Nice recovery.",
			"Good! See, it's coming back.",
		},
		incorrect: []string{
			"These are tough. Let's slow down a little.",
			"Tricky one. A short breather might help.",
			"It's okay. Every expert has missed this one too.",
		},
	},
	EmotionDemotivated: {
		correct: []string{
			"Well done. One step at a time.",
			"That's the way back. Good.",
		},
		incorrect: []string{
			"Rough patch, not a verdict. Keep at it.",
			"Progress isn't a straight line. You're still moving.",
		},
	},
}

var celebrations = []string{
	"Bonus cheer: you've answered a lot of questions today!",
	"Surprise kudos! Your consistency is paying off.",
	"Confetti moment: that was genuinely impressive.",
}

const celebrationChance = 0.05

// Generator produces feedback messages. The RNG picks message variants
// and rolls the occasional surprise celebration.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator builds a Generator. A nil rng disables the random
// celebration and always picks the first message variant, which keeps
// tests deterministic.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

const (
	streakCalloutThreshold = 5
	masteryJumpThreshold   = 4
)

// Generate returns feedback for an answer given the detected emotion.
// streak and masteryChange color the message: long runs get their count
// called out and big mastery jumps are named.
func (g *Generator) Generate(emotion Emotion, correct bool, streak, masteryChange int) string {
	// Never spring a celebration on a struggling learner.
	if g.rng != nil && correct &&
		emotion != EmotionFrustrated && emotion != EmotionDemotivated &&
		g.rng.Float64() < celebrationChance {
		return celebrations[g.rng.Intn(len(celebrations))]
	}

	set, ok := messages[emotion]
	if !ok {
		set = messages[EmotionNeutral]
	}
	pool := set.correct
	if !correct {
		pool = set.incorrect
	}
	msg := pool[0]
	if g.rng != nil {
		msg = pool[g.rng.Intn(len(pool))]
	}

	switch {
	case correct && streak >= streakCalloutThreshold:
		return fmt.Sprintf("%s That's %d in a row!", msg, streak)
	case correct && masteryChange >= masteryJumpThreshold:
		return fmt.Sprintf("%s Mastery up %d points.", msg, masteryChange)
	}
	return msg
}
