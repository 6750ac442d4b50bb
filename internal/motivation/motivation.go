// Package motivation tracks the daily practice streak, milestone
// achievements and mastery-decay warnings.
package motivation

import (
	"fmt"
	"sort"
	"time"

	"github.com/lberthe/cadence/internal/fsrs"
)

// Streak protection can only fire for streaks worth protecting.
const (
	ProtectableStreak = 5
	freezeRefillDays  = 7
)

// State is the motivation sub-state of a learner, persisted with the rest
// of their profile.
type State struct {
	// DailyStreak counts consecutive calendar days with practice.
	DailyStreak int `json:"daily_streak"`

	// FreezeAvailable is the number of grace days left; one is consumed
	// per protection event.
	FreezeAvailable int `json:"freeze_available"`

	LastFreezeRefill *time.Time `json:"last_freeze_refill,omitempty"`
	LastPracticeDate *time.Time `json:"last_practice_date,omitempty"`

	// MilestonesReached keys fired milestone ids; this is the
	// idempotency guard.
	MilestonesReached map[string]bool `json:"milestones_reached"`

	TotalQuestionsAnswered int `json:"total_questions_answered"`
	SkillsMastered         int `json:"skills_mastered"`
}

// NewState returns the motivation state for a brand-new learner: one
// freeze banked, nothing reached yet.
func NewState() State {
	return State{
		FreezeAvailable:   1,
		MilestonesReached: make(map[string]bool),
	}
}

// Clone returns a deep copy that shares nothing with the receiver, safe
// to hand to another goroutine.
func (s State) Clone() State {
	out := s
	if s.MilestonesReached != nil {
		out.MilestonesReached = make(map[string]bool, len(s.MilestonesReached))
		for k, v := range s.MilestonesReached {
			out.MilestonesReached[k] = v
		}
	}
	if s.LastFreezeRefill != nil {
		t := *s.LastFreezeRefill
		out.LastFreezeRefill = &t
	}
	if s.LastPracticeDate != nil {
		t := *s.LastPracticeDate
		out.LastPracticeDate = &t
	}
	return out
}

// Touch advances the daily streak state machine for a practice event at
// now. It returns a streak message (empty for a same-day repeat) and
// whether a freeze was consumed to protect the streak.
func Touch(s *State, now time.Time) (string, bool) {
	today := truncateToDay(now)

	if s.LastPracticeDate == nil {
		s.LastPracticeDate = &today
		s.DailyStreak = 1
		return "Streak started! (day 1)", false
	}

	days := int(today.Sub(truncateToDay(*s.LastPracticeDate)).Hours() / 24)
	if days <= 0 {
		return "", false
	}

	if days == 1 {
		s.DailyStreak++
		if s.DailyStreak < 1 {
			s.DailyStreak = 1
		}
		s.LastPracticeDate = &today
		return streakMessage(s.DailyStreak), false
	}

	// Missed at least one full day.
	refillFreeze(s, today)

	if s.FreezeAvailable > 0 && s.DailyStreak >= ProtectableStreak {
		s.FreezeAvailable--
		s.LastPracticeDate = &today
		return fmt.Sprintf("Streak protection used! %d-day streak saved (%d left)",
			s.DailyStreak, s.FreezeAvailable), true
	}

	old := s.DailyStreak
	s.DailyStreak = 1
	s.LastPracticeDate = &today
	if old >= 7 {
		return fmt.Sprintf("Streak lost (was %d days). A new one starts today!", old), false
	}
	return "New streak started!", false
}

func streakMessage(streak int) string {
	switch {
	case streak == 7:
		return "7 days in a row! Weekly streak unlocked!"
	case streak == 30:
		return "30 DAYS IN A ROW! Legendary!"
	case streak%10 == 0:
		return fmt.Sprintf("%d days in a row! Incredible consistency!", streak)
	default:
		return fmt.Sprintf("Streak: %d days", streak)
	}
}

// refillFreeze banks one grace day per week.
func refillFreeze(s *State, today time.Time) {
	if s.FreezeAvailable > 0 {
		return
	}
	if s.LastFreezeRefill == nil || today.Sub(*s.LastFreezeRefill).Hours() >= freezeRefillDays*24 {
		s.FreezeAvailable = 1
		s.LastFreezeRefill = &today
	}
}

var questionMilestones = []int{10, 50, 100, 250, 500, 1000}
var skillMilestones = []int{1, 5, 10, 15, 20}

// Milestones returns messages for milestones newly crossed, marking each
// id so it fires exactly once per learner.
func Milestones(s *State) []string {
	if s.MilestonesReached == nil {
		s.MilestonesReached = make(map[string]bool)
	}
	var msgs []string

	for _, m := range questionMilestones {
		id := fmt.Sprintf("questions_%d", m)
		if s.TotalQuestionsAnswered >= m && !s.MilestonesReached[id] {
			s.MilestonesReached[id] = true
			msgs = append(msgs, fmt.Sprintf("%d questions answered!", m))
		}
	}

	for _, m := range skillMilestones {
		id := fmt.Sprintf("skills_%d", m)
		if s.SkillsMastered >= m && !s.MilestonesReached[id] {
			s.MilestonesReached[id] = true
			switch m {
			case 1:
				msgs = append(msgs, "First skill mastered!")
			case 10:
				msgs = append(msgs, "10 skills mastered! You're on a roll!")
			default:
				msgs = append(msgs, fmt.Sprintf("%d skills mastered!", m))
			}
		}
	}
	return msgs
}

const (
	decayMasteryThreshold = 70
	decayIdleDays         = 7
	maxDecayWarnings      = 3
)

// DecayWarnings lists topics whose high mastery is at risk because they
// haven't been reviewed in a week or more. Advisory only: mastery is
// never mutated. At most three warnings, most idle first.
func DecayWarnings(masteryByTopic map[string]int, cards map[string]fsrs.Card, now time.Time) []string {
	type stale struct {
		topic string
		days  int
		score int
	}
	var candidates []stale

	for topic, score := range masteryByTopic {
		if score < decayMasteryThreshold {
			continue
		}
		card, ok := cards[topic]
		if !ok || card.LastReview == nil {
			continue
		}
		days := int(now.Sub(*card.LastReview).Hours() / 24)
		if days >= decayIdleDays {
			candidates = append(candidates, stale{topic: topic, days: days, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].days != candidates[j].days {
			return candidates[i].days > candidates[j].days
		}
		return candidates[i].topic < candidates[j].topic
	})

	if len(candidates) > maxDecayWarnings {
		candidates = candidates[:maxDecayWarnings]
	}
	warnings := make([]string, len(candidates))
	for i, c := range candidates {
		warnings[i] = fmt.Sprintf("%q at %d%% mastery, not practiced for %d days", c.topic, c.score, c.days)
	}
	return warnings
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
