package mastery

import "testing"

func TestDeltaCorrectFloorsAtOne(t *testing.T) {
	// Deep diminishing returns can't erase the gain entirely.
	d := Delta(90, true, 2, 45, 0)
	if d < 1 {
		t.Errorf("delta = %d, want >= 1", d)
	}
}

func TestDeltaCorrectFastBonus(t *testing.T) {
	slow := Delta(30, true, 3, 25, 0)
	fast := Delta(30, true, 3, 5, 0)
	if fast <= slow {
		t.Errorf("fast answer gain %d should beat slow %d", fast, slow)
	}
}

func TestDeltaBeginnerBonus(t *testing.T) {
	novice := Delta(10, true, 3, 15, 0)
	mid := Delta(45, true, 3, 15, 0)
	if novice <= mid {
		t.Errorf("novice gain %d should beat mid-range gain %d", novice, mid)
	}
}

func TestDeltaDiminishingReturns(t *testing.T) {
	prev := Delta(40, true, 3, 15, 0)
	for _, current := range []int{50, 60, 70, 80} {
		d := Delta(current, true, 3, 15, 0)
		if d > prev {
			t.Errorf("gain at mastery %d (%d) exceeds gain at lower mastery (%d)", current, d, prev)
		}
		prev = d
	}
}

func TestDeltaIncorrectByDifficulty(t *testing.T) {
	tests := []struct {
		difficulty int
		want       int
	}{
		{1, -3},
		{2, -2}, // -3 * 0.9 truncates to -2
		{3, -2},
		{4, -1},
		{5, -1},
	}
	for _, tt := range tests {
		got := Delta(50, false, tt.difficulty, 20, 0)
		if got != tt.want {
			t.Errorf("difficulty %d: delta = %d, want %d", tt.difficulty, got, tt.want)
		}
	}
}

func TestDeltaIncorrectBeginnerProtection(t *testing.T) {
	if d := Delta(10, false, 1, 20, 0); d != -1 {
		t.Errorf("novice loss = %d, want -1", d)
	}
	if d := Delta(30, false, 1, 20, 0); d != -2 {
		t.Errorf("beginner loss = %d, want -2", d)
	}
}

func TestDeltaStrugglingStreakCap(t *testing.T) {
	if d := Delta(60, false, 1, 20, -3); d != -1 {
		t.Errorf("struggling loss = %d, want -1", d)
	}
}

func TestApplyClamps(t *testing.T) {
	if got := Apply(1, -5, false); got != 0 {
		t.Errorf("Apply(1,-5) = %d, want 0", got)
	}
	if got := Apply(94, 10, false); got != Cap {
		t.Errorf("Apply(94,10) = %d, want %d", got, Cap)
	}
}

func TestApplyMaintenanceBonus(t *testing.T) {
	if got := Apply(85, 1, true); got != 87 {
		t.Errorf("Apply(85,1,correct) = %d, want 87", got)
	}
	// Bonus never pushes past the cap.
	if got := Apply(94, 1, true); got != Cap {
		t.Errorf("Apply(94,1,correct) = %d, want %d", got, Cap)
	}
	// No bonus below the mastered threshold.
	if got := Apply(70, 1, true); got != 71 {
		t.Errorf("Apply(70,1,correct) = %d, want 71", got)
	}
}
