package fsrs

import "time"

// Card holds the memory-model state for a single topic.
// Difficulty follows the DSR convention (1-10, higher is harder);
// Stability is the number of days until retrievability decays to ~90%.
type Card struct {
	Difficulty float64    `json:"difficulty"`
	Stability  float64    `json:"stability"`
	LastReview *time.Time `json:"last_review,omitempty"`
	Reps       int        `json:"reps"`
	Lapses     int        `json:"lapses"`
}

// NewCard returns a card for a topic that has never been reviewed.
func NewCard() Card {
	return Card{Difficulty: defaultDifficulty}
}

// ElapsedDays returns whole-day precision time since the last review.
// Returns 0 for a card that has never been reviewed.
func (c Card) ElapsedDays(now time.Time) float64 {
	if c.LastReview == nil {
		return 0
	}
	d := now.Sub(*c.LastReview).Hours() / 24.0
	if d < 0 {
		return 0
	}
	return d
}
