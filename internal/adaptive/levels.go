package adaptive

// MinLevel and MaxLevel bound the discrete difficulty scale.
const (
	MinLevel = 1
	MaxLevel = 5
)

// Level describes one difficulty level.
type Level struct {
	Name           string
	Display        string
	XP             int
	TargetAccuracy float64
}

// Levels is the difficulty ladder.
var Levels = map[int]Level{
	1: {Name: "VERY_EASY", Display: "Very Easy", XP: 5, TargetAccuracy: 0.90},
	2: {Name: "EASY", Display: "Easy", XP: 10, TargetAccuracy: 0.80},
	3: {Name: "MEDIUM", Display: "Medium", XP: 20, TargetAccuracy: 0.70},
	4: {Name: "HARD", Display: "Hard", XP: 35, TargetAccuracy: 0.60},
	5: {Name: "EXPERT", Display: "Expert", XP: 50, TargetAccuracy: 0.50},
}

// Clamp forces a level into [MinLevel, MaxLevel].
func Clamp(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
