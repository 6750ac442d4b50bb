// Package mastery computes per-topic mastery score changes from answer
// outcomes. All functions are pure arithmetic; inputs are assumed to be
// clamped by the caller.
package mastery

// Cap is the maximum mastery score. Reaching 100 would feel like
// completion; stopping at 95 keeps mastered topics in rotation.
const Cap = 95

// Beginner protection thresholds.
const (
	noviceThreshold   = 20
	beginnerThreshold = 35
)

// levelMultiplier scales gains and losses by question difficulty.
var levelMultiplier = map[int]float64{
	1: 1.0,
	2: 0.9,
	3: 1.0,
	4: 1.1,
	5: 1.2,
}

// Delta computes the mastery change for one answer. Positive for correct
// answers (floored at +1), negative otherwise, with beginner protection
// and a cap on losses during a bad streak.
func Delta(current int, correct bool, difficulty int, responseTimeSec float64, streak int) int {
	mult, ok := levelMultiplier[difficulty]
	if !ok {
		mult = 1.0
	}
	if correct {
		return gain(current, mult, responseTimeSec)
	}
	return loss(current, difficulty, mult, streak)
}

func gain(current int, mult, responseTimeSec float64) int {
	base := 3.0
	if responseTimeSec < 10 {
		base++
	}
	v := base * mult

	// Beginner bonus: early progress should feel fast.
	switch {
	case current < noviceThreshold:
		v *= 1.25
	case current < beginnerThreshold:
		v *= 1.10
	}

	// Diminishing returns near the top of the scale.
	switch {
	case current >= 80:
		v /= 3
	case current >= 70:
		v /= 2.5
	case current >= 60:
		v /= 2
	case current >= 50:
		v *= 0.7
	case current >= 40:
		v *= 0.85
	}

	d := int(v)
	if d < 1 {
		d = 1
	}
	return d
}

func loss(current, difficulty int, mult float64, streak int) int {
	base := -2.0
	switch {
	case difficulty <= 2:
		// Careless mistakes on easy items cost more.
		base = -3
	case difficulty >= 4:
		// Hard misses are forgiven.
		base = -1
	}

	d := int(base * mult)

	// Beginner protection.
	switch {
	case current < noviceThreshold:
		d = maxInt(d, -1)
	case current < beginnerThreshold:
		d = maxInt(d, -2)
	}

	// Already struggling: don't compound the frustration.
	if streak <= -3 {
		d = maxInt(d, -1)
	}
	return d
}

// Apply clamps the delta into [0, Cap] and adds the maintenance bonus: a
// successful review of an already-mastered topic earns +1 extra.
func Apply(current, delta int, correct bool) int {
	next := clamp(current+delta, 0, Cap)
	if correct && current >= 80 && next < Cap {
		next++
	}
	return next
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
