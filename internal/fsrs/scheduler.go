package fsrs

import (
	"math"
	"math/rand"
	"time"
)

// Rating grades a single review outcome.
type Rating int

const (
	Again Rating = iota + 1 // incorrect
	Hard                    // correct but slow
	Good                    // correct
	Easy                    // correct and fast
)

const (
	// DefaultTargetRetention is the recall probability reviews are scheduled for.
	DefaultTargetRetention = 0.9

	// MaxIntervalDays caps both stability and the scheduled interval.
	MaxIntervalDays = 365

	// MinStability is the floor after a lapse.
	MinStability = 0.1

	defaultDifficulty = 5.0

	// Stability growth on success scales with (1 - retrievability):
	// reviews that were close to being forgotten consolidate more.
	successGrowth = 8.0

	hardGrowthModifier = 0.85
	easyGrowthModifier = 1.3

	// Failure-decay shape (coefficient, difficulty exponent, stability
	// exponent, retrievability weight).
	forgetCoeff          = 2.18
	forgetDifficultyExp  = 0.05
	forgetStabilityExp   = 0.34
	forgetRetrievability = 1.26

	// Difficulty update: per-rating delta and mean reversion toward the
	// default difficulty.
	difficultyDelta         = 0.86
	difficultyMeanReversion = 0.14

	// Response-time thresholds for deriving a rating from an answer.
	fastAnswerSec = 10.0
	slowAnswerSec = 30.0
)

// initialStability maps the first rating of a card to its starting stability.
var initialStability = map[Rating]float64{
	Again: 0.4,
	Hard:  0.6,
	Good:  2.4,
	Easy:  5.8,
}

// Params configures a Scheduler.
type Params struct {
	// TargetRetention is the recall probability to schedule for. Zero
	// means DefaultTargetRetention.
	TargetRetention float64

	// EnableFuzz adds +/-5% noise to intervals above 2 days so reviews
	// don't cluster. Requires Rand. Off by default: Review is then a
	// pure function.
	EnableFuzz bool

	// Rand is the noise source for interval fuzzing.
	Rand *rand.Rand
}

// Scheduler computes review schedules from answer outcomes.
type Scheduler struct {
	params Params
}

// NewScheduler creates a scheduler with the given params.
func NewScheduler(params Params) *Scheduler {
	if params.TargetRetention <= 0 || params.TargetRetention >= 1 {
		params.TargetRetention = DefaultTargetRetention
	}
	return &Scheduler{params: params}
}

// NewDefaultScheduler creates a scheduler with default params and no fuzzing.
func NewDefaultScheduler() *Scheduler {
	return NewScheduler(Params{})
}

// RatingFor derives a rating from an answer outcome. Incorrect answers are
// Again; correct answers grade by response time.
func RatingFor(correct bool, responseTimeSec float64) Rating {
	if !correct {
		return Again
	}
	switch {
	case responseTimeSec < fastAnswerSec:
		return Easy
	case responseTimeSec < slowAnswerSec:
		return Good
	default:
		return Hard
	}
}

// Retrievability returns the probability of recall after elapsedDays given
// the card's stability. R(t,S) = (1 + t/(9S))^-1. Non-positive elapsed time
// or stability means the memory is fresh: R = 1.
func Retrievability(elapsedDays, stability float64) float64 {
	if elapsedDays <= 0 || stability <= 0 {
		return 1
	}
	return 1 / (1 + elapsedDays/(9*stability))
}

// Review applies a rating to a card and returns the updated card together
// with the next review interval in days. The input card is not mutated.
func (s *Scheduler) Review(card Card, rating Rating, now time.Time) (Card, int) {
	if rating < Again || rating > Easy {
		rating = Good
	}

	elapsed := card.ElapsedDays(now)
	r := 1.0
	if card.Stability > 0 && elapsed > 0 {
		r = Retrievability(elapsed, card.Stability)
	}

	next := Card{
		LastReview: &now,
		Reps:       card.Reps + 1,
		Lapses:     card.Lapses,
	}
	if rating == Again {
		next.Lapses++
	}

	if card.Reps == 0 {
		next.Difficulty = initDifficulty(rating)
		next.Stability = initialStability[rating]
	} else {
		next.Difficulty = nextDifficulty(card.Difficulty, rating)
		if rating == Again {
			next.Stability = nextStabilityFail(card.Difficulty, card.Stability, r)
		} else {
			next.Stability = nextStabilitySuccess(card.Difficulty, card.Stability, r, rating)
		}
	}
	next.Stability = clampStability(next.Stability)

	interval := 1
	if rating != Again {
		interval = s.interval(next.Stability)
	}
	return next, interval
}

// Interval returns the scheduled review interval for a given stability:
// I(S) = round(9S(1/retention - 1)), clamped to [1, MaxIntervalDays].
func (s *Scheduler) Interval(stability float64) int {
	return s.interval(stability)
}

func (s *Scheduler) interval(stability float64) int {
	days := 9 * stability * (1/s.params.TargetRetention - 1)
	interval := int(math.Round(days))
	if interval < 1 {
		interval = 1
	}
	if interval > MaxIntervalDays {
		interval = MaxIntervalDays
	}
	if s.params.EnableFuzz && s.params.Rand != nil && interval > 2 {
		fuzz := 0.95 + 0.1*s.params.Rand.Float64()
		interval = int(math.Round(float64(interval) * fuzz))
		if interval < 1 {
			interval = 1
		}
	}
	return interval
}

// initDifficulty derives the starting difficulty from the first rating.
func initDifficulty(rating Rating) float64 {
	return clampDifficulty(defaultDifficulty - float64(rating-Good)*0.94)
}

// nextDifficulty shifts difficulty by the rating and reverts toward the mean
// so repeated extreme ratings don't pin it at the bounds.
func nextDifficulty(d float64, rating Rating) float64 {
	shifted := d - difficultyDelta*float64(rating-Good)
	reverted := difficultyMeanReversion*defaultDifficulty + (1-difficultyMeanReversion)*shifted
	return clampDifficulty(reverted)
}

// nextStabilitySuccess grows stability multiplicatively. The growth factor
// scales with (1-R) and with how easy the card is, and is modulated by the
// rating: Hard consolidates less, Easy more.
func nextStabilitySuccess(d, s, r float64, rating Rating) float64 {
	mod := 1.0
	switch rating {
	case Hard:
		mod = hardGrowthModifier
	case Easy:
		mod = easyGrowthModifier
	}
	growth := successGrowth * (11 - d) / 10 * (1 - r) * mod
	return s * (1 + growth)
}

// nextStabilityFail recomputes stability after a lapse. The result grows
// with (1-R), shrinks with difficulty, and never exceeds the old stability.
func nextStabilityFail(d, s, r float64) float64 {
	next := forgetCoeff *
		math.Pow(d, -forgetDifficultyExp) *
		(math.Pow(s+1, forgetStabilityExp) - 1) *
		math.Exp(forgetRetrievability*(1-r))
	if next > s {
		next = s
	}
	return next
}

func clampStability(s float64) float64 {
	if s < MinStability {
		return MinStability
	}
	if s > MaxIntervalDays {
		return MaxIntervalDays
	}
	return s
}

func clampDifficulty(d float64) float64 {
	if d < 1 {
		return 1
	}
	if d > 10 {
		return 10
	}
	return d
}
