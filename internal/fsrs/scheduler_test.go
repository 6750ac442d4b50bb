package fsrs

import (
	"testing"
	"time"
)

func TestRatingFor(t *testing.T) {
	tests := []struct {
		correct bool
		seconds float64
		want    Rating
	}{
		{false, 5, Again},
		{false, 120, Again},
		{true, 0, Easy},
		{true, 9.9, Easy},
		{true, 10, Good},
		{true, 29.9, Good},
		{true, 30, Hard},
		{true, 300, Hard},
	}
	for _, tt := range tests {
		got := RatingFor(tt.correct, tt.seconds)
		if got != tt.want {
			t.Errorf("RatingFor(%v, %v) = %v, want %v", tt.correct, tt.seconds, got, tt.want)
		}
	}
}

func TestRetrievabilityFreshMemory(t *testing.T) {
	if r := Retrievability(0, 5); r != 1 {
		t.Errorf("t=0 should give R=1, got %v", r)
	}
	if r := Retrievability(-1, 5); r != 1 {
		t.Errorf("t<0 should give R=1, got %v", r)
	}
	if r := Retrievability(3, 0); r != 1 {
		t.Errorf("S=0 should give R=1, got %v", r)
	}
}

func TestRetrievabilityMonotonic(t *testing.T) {
	const stability = 7.0
	prev := Retrievability(0.5, stability)
	for d := 1.0; d <= 100; d++ {
		r := Retrievability(d, stability)
		if r > prev {
			t.Fatalf("retrievability increased from %v to %v at day %v", prev, r, d)
		}
		if r < 0 || r > 1 {
			t.Fatalf("retrievability out of range: %v", r)
		}
		prev = r
	}
}

func TestFirstReviewInitializesCard(t *testing.T) {
	s := NewDefaultScheduler()
	now := time.Now()

	for rating, wantStability := range initialStability {
		card, _ := s.Review(NewCard(), rating, now)
		if card.Stability != wantStability {
			t.Errorf("rating %v: stability = %v, want %v", rating, card.Stability, wantStability)
		}
		if card.Reps != 1 {
			t.Errorf("rating %v: reps = %d, want 1", rating, card.Reps)
		}
		if card.Difficulty < 1 || card.Difficulty > 10 {
			t.Errorf("rating %v: difficulty %v out of range", rating, card.Difficulty)
		}
	}

	card, interval := s.Review(NewCard(), Again, now)
	if card.Lapses != 1 {
		t.Errorf("lapses = %d, want 1", card.Lapses)
	}
	if interval != 1 {
		t.Errorf("failed review interval = %d, want 1", interval)
	}
}

// reviewAfter runs a review elapsed days after the card's last review.
func reviewAfter(t *testing.T, s *Scheduler, card Card, rating Rating, elapsedDays int) (Card, int) {
	t.Helper()
	if card.LastReview == nil {
		t.Fatal("card has no last review")
	}
	now := card.LastReview.AddDate(0, 0, elapsedDays)
	return s.Review(card, rating, now)
}

func TestSuccessGrowsStability(t *testing.T) {
	s := NewDefaultScheduler()
	card, _ := s.Review(NewCard(), Good, time.Now())

	grown, _ := reviewAfter(t, s, card, Good, 3)
	if grown.Stability <= card.Stability {
		t.Errorf("stability did not grow: %v -> %v", card.Stability, grown.Stability)
	}
}

func TestRatingModulatesGrowth(t *testing.T) {
	s := NewDefaultScheduler()
	card, _ := s.Review(NewCard(), Good, time.Now())

	hard, _ := reviewAfter(t, s, card, Hard, 3)
	good, _ := reviewAfter(t, s, card, Good, 3)
	easy, _ := reviewAfter(t, s, card, Easy, 3)

	if !(hard.Stability < good.Stability) {
		t.Errorf("hard growth %v should be below good growth %v", hard.Stability, good.Stability)
	}
	if !(easy.Stability > good.Stability) {
		t.Errorf("easy growth %v should be above good growth %v", easy.Stability, good.Stability)
	}
}

func TestHarderWonReviewsConsolidateMore(t *testing.T) {
	s := NewDefaultScheduler()
	card, _ := s.Review(NewCard(), Good, time.Now())

	early, _ := reviewAfter(t, s, card, Good, 1)
	late, _ := reviewAfter(t, s, card, Good, 20)

	if !(late.Stability > early.Stability) {
		t.Errorf("low-retrievability review should consolidate more: %v vs %v",
			late.Stability, early.Stability)
	}
}

func TestFailureLowersStability(t *testing.T) {
	s := NewDefaultScheduler()
	card, _ := s.Review(NewCard(), Easy, time.Now())

	for days := 1; days <= 30; days *= 3 {
		failed, interval := reviewAfter(t, s, card, Again, days)
		if failed.Stability >= card.Stability {
			t.Errorf("day %d: stability did not drop: %v -> %v", days, card.Stability, failed.Stability)
		}
		if failed.Stability < MinStability {
			t.Errorf("day %d: stability %v below floor", days, failed.Stability)
		}
		if interval != 1 {
			t.Errorf("day %d: lapse interval = %d, want 1", days, interval)
		}
	}
}

func TestStabilityCapped(t *testing.T) {
	s := NewDefaultScheduler()
	card, _ := s.Review(NewCard(), Easy, time.Now())

	// Long chain of maximally consolidating reviews.
	for i := 0; i < 50; i++ {
		card, _ = reviewAfter(t, s, card, Easy, 400)
	}
	if card.Stability > MaxIntervalDays {
		t.Errorf("stability %v exceeds cap", card.Stability)
	}
}

func TestIntervalFollowsStability(t *testing.T) {
	s := NewDefaultScheduler()

	// At target retention 0.9 the interval formula reduces to round(S).
	tests := []struct {
		stability float64
		want      int
	}{
		{0.1, 1},
		{1, 1},
		{7.4, 7},
		{30, 30},
		{400, 365},
	}
	for _, tt := range tests {
		if got := s.Interval(tt.stability); got != tt.want {
			t.Errorf("Interval(%v) = %d, want %d", tt.stability, got, tt.want)
		}
	}
}

func TestReviewDoesNotMutateInput(t *testing.T) {
	s := NewDefaultScheduler()
	now := time.Now()
	card, _ := s.Review(NewCard(), Good, now)
	before := card

	_, _ = s.Review(card, Again, now.AddDate(0, 0, 5))
	if card != before {
		t.Error("Review mutated its input card")
	}
}
