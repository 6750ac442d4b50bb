package engine

import (
	"time"

	"github.com/lberthe/cadence/internal/cognitive"
	"github.com/lberthe/cadence/internal/fsrs"
	"github.com/lberthe/cadence/internal/motivation"
	"github.com/lberthe/cadence/internal/store"
)

// historyCap bounds the response window; every detector reads at most
// the last 20 entries, so 50 leaves headroom.
const historyCap = 50

// UserState is the full in-memory state of one learner. The engine owns
// it exclusively; all access goes through the per-user lock.
type UserState struct {
	UserID  string
	Cards   map[string]fsrs.Card
	Mastery map[string]int
	History []cognitive.Response

	// AnswerStreak is signed: positive runs of correct answers, negative
	// runs of incorrect ones.
	AnswerStreak int

	TotalXP   int
	LastTopic string
	CreatedAt time.Time

	Motivation motivation.State

	// Session-scoped fields below are never persisted.
	Detector                   *cognitive.LoadDetector
	SessionStart               time.Time
	RecoveryMode               bool
	RecoveryQuestionsRemaining int
	QuickWinsRemaining         int

	answersSinceSave int
	dirty            bool
}

func newUserState(userID string, now time.Time) *UserState {
	return &UserState{
		UserID:     userID,
		Cards:      make(map[string]fsrs.Card),
		Mastery:    make(map[string]int),
		CreatedAt:  now,
		Motivation: motivation.NewState(),
	}
}

// appendHistory adds one response, keeping the window bounded.
func (s *UserState) appendHistory(r cognitive.Response) {
	s.History = append(s.History, r)
	if len(s.History) > historyCap {
		s.History = s.History[len(s.History)-historyCap:]
	}
}

// snapshot captures the durable subset of the state for persistence.
// Everything is deep-copied: the save goroutine marshals the snapshot
// outside the per-user lock, so it must share nothing with the live
// state.
func (s *UserState) snapshot(now time.Time) *store.Snapshot {
	cards := make(map[string]fsrs.Card, len(s.Cards))
	for k, v := range s.Cards {
		cards[k] = v
	}
	mastery := make(map[string]int, len(s.Mastery))
	for k, v := range s.Mastery {
		mastery[k] = v
	}
	history := make([]cognitive.Response, len(s.History))
	copy(history, s.History)

	return &store.Snapshot{
		Data: store.UserStateData{
			UserID:       s.UserID,
			Cards:        cards,
			Mastery:      mastery,
			History:      history,
			AnswerStreak: s.AnswerStreak,
			TotalXP:      s.TotalXP,
			LastTopic:    s.LastTopic,
			CreatedAt:    s.CreatedAt,
		},
		Motivation: s.Motivation.Clone(),
		UpdatedAt:  now,
	}
}

// stateFromSnapshot rebuilds a UserState from persisted data. Session
// fields start empty; they belong to the session, not the learner.
func stateFromSnapshot(snap *store.Snapshot) *UserState {
	st := &UserState{
		UserID:       snap.Data.UserID,
		Cards:        snap.Data.Cards,
		Mastery:      snap.Data.Mastery,
		History:      snap.Data.History,
		AnswerStreak: snap.Data.AnswerStreak,
		TotalXP:      snap.Data.TotalXP,
		LastTopic:    snap.Data.LastTopic,
		CreatedAt:    snap.Data.CreatedAt,
		Motivation:   snap.Motivation,
	}
	if st.Cards == nil {
		st.Cards = make(map[string]fsrs.Card)
	}
	if st.Mastery == nil {
		st.Mastery = make(map[string]int)
	}
	return st
}
