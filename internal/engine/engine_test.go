package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/cadence/internal/cognitive"
	"github.com/lberthe/cadence/internal/fsrs"
	"github.com/lberthe/cadence/internal/motivation"
	"github.com/lberthe/cadence/internal/store"
)

// memRepo is an in-memory UserStateRepo. failSaves makes every Save
// error, for the best-effort persistence tests.
type memRepo struct {
	mu        sync.Mutex
	snaps     map[string]*store.Snapshot
	saveCount int
	failSaves bool
}

func newMemRepo() *memRepo {
	return &memRepo{snaps: make(map[string]*store.Snapshot)}
}

func (r *memRepo) Save(_ context.Context, snap *store.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCount++
	if r.failSaves {
		return errors.New("disk on fire")
	}
	r.snaps[snap.Data.UserID] = snap
	return nil
}

func (r *memRepo) Load(_ context.Context, userID string) (*store.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (r *memRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snaps, userID)
	return nil
}

func (r *memRepo) ListUsers(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.snaps {
		ids = append(ids, id)
	}
	return ids, nil
}

func newTestEngine(repo store.UserStateRepo, opts ...Option) *Engine {
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time {
			return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		}),
	}
	return New(repo, append(base, opts...)...)
}

func TestTenCorrectAnswersBuildMasteryAndStreak(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	last := 0
	for i := 0; i < 10; i++ {
		res := e.ProcessAnswer(ctx, "ada", "t1", true, 5, 2)
		require.Greater(t, res.NewMastery, last,
			"mastery must strictly increase on answer %d", i+1)
		last = res.NewMastery
		assert.Equal(t, i+1, res.Streak)
		assert.Greater(t, res.XPEarned, 0)
	}

	stats := e.Stats(ctx, "ada")
	assert.Equal(t, 10, stats.TotalQuestions)
	assert.Equal(t, 10, stats.AnswerStreak)
	assert.Greater(t, stats.TotalXP, 0)
	assert.Greater(t, stats.Topics["t1"].Stability, 0.0)
}

func TestStrongRunEscalatesToExpert(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// A seasoned learner: 20 answers with isolated misses, current run
	// of six correct, well past the early-game window.
	var history []cognitive.Response
	for i := 0; i < 20; i++ {
		correct := i != 5 && i != 12
		history = append(history, cognitive.Response{
			TopicID: "t1", Correct: correct, ResponseTimeSec: 8,
			Difficulty: 3, Timestamp: now.Add(time.Duration(i) * time.Minute),
		})
	}
	motiv := motivation.NewState()
	motiv.TotalQuestionsAnswered = 100
	require.NoError(t, repo.Save(context.Background(), &store.Snapshot{
		Data: store.UserStateData{
			UserID:       "vik",
			Cards:        map[string]fsrs.Card{},
			Mastery:      map[string]int{"t1": 50},
			History:      history,
			AnswerStreak: 6,
			CreatedAt:    now.AddDate(0, -1, 0),
		},
		Motivation: motiv,
	}))

	e := newTestEngine(repo, WithClock(func() time.Time { return now }))
	q := e.GetNextQuestion(context.Background(), "vik", "t1", 50)
	assert.Equal(t, 5, q.Difficulty,
		"high accuracy plus a six-answer run should unlock expert")
	assert.Equal(t, "EXPERT", q.DifficultyName)
}

func TestErrorRunForcesEasiestQuestions(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		e.ProcessAnswer(ctx, "max", "t1", false, 20, 3)
	}

	// Quick wins keep the next questions at level 1 until the streak
	// recovers.
	for i := 0; i < 3; i++ {
		q := e.GetNextQuestion(ctx, "max", "t1", 60)
		assert.Equal(t, 1, q.Difficulty, "question %d after error run", i+1)
	}
}

func TestDecayWarningOnTenthAnswer(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	stale := now.AddDate(0, 0, -10)

	motiv := motivation.NewState()
	motiv.TotalQuestionsAnswered = 9
	require.NoError(t, repo.Save(context.Background(), &store.Snapshot{
		Data: store.UserStateData{
			UserID:    "kim",
			Cards:     map[string]fsrs.Card{"geometry": {Stability: 20, LastReview: &stale}},
			Mastery:   map[string]int{"geometry": 75},
			CreatedAt: now.AddDate(0, -2, 0),
		},
		Motivation: motiv,
	}))

	e := newTestEngine(repo, WithClock(func() time.Time { return now }))
	res := e.ProcessAnswer(context.Background(), "kim", "algebra", true, 6, 2)
	require.Len(t, res.DecayWarnings, 1)
	assert.Contains(t, res.DecayWarnings[0], "geometry")

	// The next answer is not a checkpoint.
	res = e.ProcessAnswer(context.Background(), "kim", "algebra", true, 6, 2)
	assert.Empty(t, res.DecayWarnings)
}

func TestStreakFreezeConsumedOnce(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	twoDaysAgo := now.AddDate(0, 0, -2)

	motiv := motivation.NewState()
	motiv.DailyStreak = 6
	motiv.FreezeAvailable = 1
	motiv.LastPracticeDate = &twoDaysAgo
	require.NoError(t, repo.Save(context.Background(), &store.Snapshot{
		Data:       store.UserStateData{UserID: "lena", CreatedAt: now.AddDate(0, -1, 0)},
		Motivation: motiv,
	}))

	e := newTestEngine(repo, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first := e.ProcessAnswer(ctx, "lena", "t1", true, 5, 2)
	assert.True(t, first.FreezeUsed)

	second := e.ProcessAnswer(ctx, "lena", "t1", true, 5, 2)
	assert.False(t, second.FreezeUsed, "same-day answer must not spend another freeze")

	stats := e.Stats(ctx, "lena")
	assert.Equal(t, 6, stats.DailyStreak)
}

func TestInvariantsHoldUnderMixedInput(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		// Difficulty input deliberately out of range at times.
		res := e.ProcessAnswer(ctx, "zoe", "t1",
			rng.Intn(2) == 0, rng.Float64()*60, rng.Intn(9)-2)
		require.GreaterOrEqual(t, res.NewMastery, 0)
		require.LessOrEqual(t, res.NewMastery, 95)

		q := e.GetNextQuestion(ctx, "zoe", "t1", -1)
		require.GreaterOrEqual(t, q.Difficulty, 1)
		require.LessOrEqual(t, q.Difficulty, 5)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	repo := newMemRepo()
	ctx := context.Background()

	e := newTestEngine(repo)
	for i := 0; i < 7; i++ {
		e.ProcessAnswer(ctx, "sam", "t1", true, 5, 3)
	}
	before := e.Stats(ctx, "sam")
	e.Close()

	e2 := newTestEngine(repo)
	after := e2.Stats(ctx, "sam")
	assert.Equal(t, before.TotalXP, after.TotalXP)
	assert.Equal(t, before.AnswerStreak, after.AnswerStreak)
	assert.Equal(t, before.TotalQuestions, after.TotalQuestions)
	assert.Equal(t, before.Topics["t1"].Mastery, after.Topics["t1"].Mastery)
	assert.InDelta(t, before.Topics["t1"].Stability, after.Topics["t1"].Stability, 1e-9)
}

func TestSaveFailureNeverFailsTheAnswer(t *testing.T) {
	repo := newMemRepo()
	repo.failSaves = true

	e := newTestEngine(repo, WithAutosaveEvery(1))
	for i := 0; i < 5; i++ {
		res := e.ProcessAnswer(context.Background(), "ira", "t1", true, 5, 2)
		assert.True(t, res.Correct)
		assert.NotEmpty(t, res.Feedback)
	}
	e.Close()
}

func TestResetSessionKeepsDurableState(t *testing.T) {
	repo := newMemRepo()
	ctx := context.Background()
	e := newTestEngine(repo)

	for i := 0; i < 6; i++ {
		e.ProcessAnswer(ctx, "noa", "t1", true, 5, 3)
	}
	before := e.Stats(ctx, "noa")
	e.ResetSession(ctx, "noa")
	after := e.Stats(ctx, "noa")

	assert.Equal(t, before.TotalXP, after.TotalXP)
	assert.Equal(t, before.AnswerStreak, after.AnswerStreak, "answer streak carries across sessions")
	assert.Equal(t, before.DailyStreak, after.DailyStreak)
	assert.Zero(t, after.RecentAccuracy, "response window must be cleared")

	// Reset persists before clearing.
	repo.mu.Lock()
	_, saved := repo.snaps["noa"]
	repo.mu.Unlock()
	assert.True(t, saved)
}

func TestParallelUsersStayIndependent(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", u)
			for i := 0; i < 30; i++ {
				e.ProcessAnswer(ctx, user, "t1", true, 5, 2)
				e.GetNextQuestion(ctx, user, "t1", -1)
			}
		}(u)
	}
	wg.Wait()
	e.Close()

	for u := 0; u < 8; u++ {
		stats := e.Stats(ctx, fmt.Sprintf("user-%d", u))
		assert.Equal(t, 30, stats.TotalQuestions)
		assert.Equal(t, 30, stats.AnswerStreak)
	}
}

func TestInterleaveSuggestedAfterTopicRun(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		e.ProcessAnswer(ctx, "pat", "t1", true, 5, 3)
	}
	q := e.GetNextQuestion(ctx, "pat", "t1", -1)
	assert.True(t, q.InterleaveSuggested)

	q = e.GetNextQuestion(ctx, "pat", "t2", -1)
	assert.False(t, q.InterleaveSuggested, "a different topic breaks the run")
}

func TestSkillDistanceShiftsDifficulty(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	motiv := motivation.NewState()
	motiv.TotalQuestionsAnswered = 100

	var history []cognitive.Response
	for i := 0; i < 10; i++ {
		history = append(history, cognitive.Response{
			TopicID: "t1", Correct: i%3 != 0, ResponseTimeSec: 8,
			Difficulty: 3, Timestamp: now,
		})
	}
	require.NoError(t, repo.Save(context.Background(), &store.Snapshot{
		Data: store.UserStateData{
			UserID:    "gil",
			Mastery:   map[string]int{"t1": 60},
			History:   history,
			CreatedAt: now.AddDate(0, -1, 0),
		},
		Motivation: motiv,
	}))

	far := func(map[string]int, string) float64 { return 0.9 }
	e := newTestEngine(repo,
		WithClock(func() time.Time { return now }),
		WithSkillDistance(far))

	plain := e.GetNextQuestion(context.Background(), "gil", "t1", 60)
	task := e.GetNextQuestionForTask(context.Background(), "gil", "t1", 60)
	assert.Equal(t, plain.Difficulty-2, task.Difficulty,
		"distant tasks drop two levels")
}

func TestCorruptStoreFallsBackToFreshState(t *testing.T) {
	// Simulate an unreadable row with a repo that errors on load.
	failing := &failingLoadRepo{memRepo: newMemRepo()}
	e := newTestEngine(failing)

	res := e.ProcessAnswer(context.Background(), "rex", "t1", true, 5, 2)
	assert.Equal(t, 1, res.Streak, "fresh state despite the load failure")
}

type failingLoadRepo struct {
	*memRepo
}

func (r *failingLoadRepo) Load(context.Context, string) (*store.Snapshot, error) {
	return nil, errors.New("corrupt row")
}

func TestAnswerResultCarriesBreakSignals(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	var res AnswerResult
	for i := 0; i < 5; i++ {
		res = e.ProcessAnswer(ctx, "uma", "t1", false, 12, 3)
	}
	assert.Zero(t, res.AccuracyRecent)
	assert.True(t, res.ShouldReduceDifficulty, "overloaded learner should slow down")
	assert.True(t, res.ShouldTakeBreak, "overloaded learner should stop")

	for i := 0; i < 10; i++ {
		res = e.ProcessAnswer(ctx, "vic", "t1", true, 8, 3)
	}
	assert.Equal(t, 1.0, res.AccuracyRecent)
	assert.False(t, res.ShouldReduceDifficulty)
	assert.False(t, res.ShouldTakeBreak)
}

func TestErrorRunSeedsQuickWinsAndResetsStreak(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	var res AnswerResult
	for i := 0; i < 3; i++ {
		res = e.ProcessAnswer(ctx, "wes", "t1", false, 10, 3)
	}
	assert.Equal(t, 0, res.Streak, "seeding wipes the error streak")

	st := e.entry(ctx, "wes").state
	assert.Equal(t, 3, st.QuickWinsRemaining)
}

func TestStrugglingLearnerGetsLongerQuickWinRun(t *testing.T) {
	e := newTestEngine(newMemRepo())
	ctx := context.Background()

	// Two correct then three wrong: recent accuracy 0.4 with one error
	// episode puts performance below the struggling cutoff.
	var res AnswerResult
	for i := 0; i < 2; i++ {
		e.ProcessAnswer(ctx, "xia", "t1", true, 8, 3)
	}
	for i := 0; i < 3; i++ {
		res = e.ProcessAnswer(ctx, "xia", "t1", false, 10, 3)
	}
	assert.Equal(t, 0, res.Streak)

	st := e.entry(ctx, "xia").state
	assert.Equal(t, 5, st.QuickWinsRemaining)
}

func TestSnapshotSharesNothingWithLiveState(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	st := newUserState("yan", now)
	st.Cards["t1"] = fsrs.NewCard()
	st.Mastery["t1"] = 40
	st.Motivation.MilestonesReached["questions_10"] = true
	st.appendHistory(cognitive.Response{TopicID: "t1", Correct: true, Timestamp: now})

	snap := st.snapshot(now)

	// Mutations after the snapshot must not leak into it; the save
	// goroutine marshals it without holding the user lock.
	st.Cards["t2"] = fsrs.NewCard()
	st.Mastery["t1"] = 99
	st.Motivation.MilestonesReached["questions_50"] = true
	later := now.Add(time.Hour)
	st.Motivation.LastPracticeDate = &later
	st.appendHistory(cognitive.Response{TopicID: "t2", Correct: false, Timestamp: now})

	assert.NotContains(t, snap.Data.Cards, "t2")
	assert.Equal(t, 40, snap.Data.Mastery["t1"])
	assert.Len(t, snap.Data.History, 1)
	assert.False(t, snap.Motivation.MilestonesReached["questions_50"])
	assert.Nil(t, snap.Motivation.LastPracticeDate)
}
