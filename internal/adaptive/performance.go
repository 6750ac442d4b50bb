package adaptive

import (
	"time"

	"github.com/lberthe/cadence/internal/cognitive"
)

const (
	// DefaultPerformance is assumed with fewer than five answers.
	DefaultPerformance = 0.5

	performanceFloor   = 0.3
	performanceCeiling = 0.8

	earlyGameAnswers = 50
	earlyGameDays    = 7
)

// PerformanceLevel estimates how the learner performs historically, in
// [0.3, 0.8]: recent accuracy penalized by how often they fall into runs
// of three or more consecutive errors.
func PerformanceLevel(history []cognitive.Response) float64 {
	if len(history) < 5 {
		return DefaultPerformance
	}

	accuracy := cognitive.Accuracy(cognitive.Tail(history, 20))

	episodes := 0
	consecutive := 0
	for _, r := range cognitive.Tail(history, 50) {
		if !r.Correct {
			consecutive++
			if consecutive == 3 {
				episodes++
			}
		} else {
			consecutive = 0
		}
	}
	penalty := float64(episodes) * 0.05
	if penalty > 0.2 {
		penalty = 0.2
	}

	p := accuracy - penalty
	if p < performanceFloor {
		return performanceFloor
	}
	if p > performanceCeiling {
		return performanceCeiling
	}
	return p
}

// EarlyGame reports whether the learner is still in their first days:
// fewer than 50 answers ever, or within a week of their first answer.
func EarlyGame(totalAnswers int, firstAnswerAt *time.Time, now time.Time) bool {
	if totalAnswers < earlyGameAnswers {
		return true
	}
	if firstAnswerAt != nil && now.Sub(*firstAnswerAt) <= earlyGameDays*24*time.Hour {
		return true
	}
	return false
}
