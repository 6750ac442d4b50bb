// Package engine orchestrates the review scheduler, cognitive assessor,
// mastery tracker, motivation manager and feedback generator into the
// two entry points callers use: GetNextQuestion and ProcessAnswer.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/lberthe/cadence/internal/adaptive"
	"github.com/lberthe/cadence/internal/cognitive"
	"github.com/lberthe/cadence/internal/feedback"
	"github.com/lberthe/cadence/internal/fsrs"
	"github.com/lberthe/cadence/internal/mastery"
	"github.com/lberthe/cadence/internal/motivation"
	"github.com/lberthe/cadence/internal/skillgraph"
	"github.com/lberthe/cadence/internal/store"
)

const (
	defaultAutosaveEvery = 5

	// recoveryDepth is how many forced-easy questions a recovery episode
	// serves before re-checking the learner's state.
	recoveryDepth = 5

	// Quick wins seed short confidence-rebuilding runs after a bad
	// stretch without entering full recovery. Learners performing badly
	// overall get the longer run.
	quickWinCount           = 3
	quickWinCountStruggling = 5
	strugglingPerformance   = 0.4

	streakXPBonus     = 1.2
	streakXPThreshold = 3

	masteredThreshold = 80

	interleaveRunLength = 4
	decayCheckEvery     = 10
)

// userEntry pairs a state with its lock. All mutations of one user are
// serialized here; different users proceed in parallel.
type userEntry struct {
	mu    sync.Mutex
	state *UserState
}

// Engine is the per-user orchestrator. Safe for concurrent use.
type Engine struct {
	repo     store.UserStateRepo
	sched    *fsrs.Scheduler
	selector *adaptive.Selector
	gen      *feedback.Generator
	distance skillgraph.DistanceFunc
	log      *zap.Logger
	now      func() time.Time

	autosaveEvery int

	mu    sync.Mutex
	users map[string]*userEntry

	flusher *gocron.Scheduler
	saves   sync.WaitGroup
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand seeds the RNG behind feedback variety and the consolidation
// roll. Tests pass a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.selector = adaptive.NewSelector(rng)
		e.gen = feedback.NewGenerator(rng)
	}
}

// WithTargetRetention tunes review spacing.
func WithTargetRetention(retention float64) Option {
	return func(e *Engine) {
		e.sched = fsrs.NewScheduler(fsrs.Params{TargetRetention: retention})
	}
}

// WithSkillDistance plugs in a skill-distance source used by
// GetNextQuestionForTask. Absent, task questions get no adjustment.
func WithSkillDistance(fn skillgraph.DistanceFunc) Option {
	return func(e *Engine) { e.distance = fn }
}

// WithAutosaveEvery sets how many answers pass between best-effort
// saves.
func WithAutosaveEvery(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.autosaveEvery = n
		}
	}
}

// New builds an engine over the given persistence port.
func New(repo store.UserStateRepo, opts ...Option) *Engine {
	e := &Engine{
		repo:          repo,
		sched:         fsrs.NewDefaultScheduler(),
		log:           zap.NewNop(),
		now:           time.Now,
		autosaveEvery: defaultAutosaveEvery,
		users:         make(map[string]*userEntry),
	}
	rng := rand.New(newLockedSource(time.Now().UnixNano()))
	e.selector = adaptive.NewSelector(rng)
	e.gen = feedback.NewGenerator(rng)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// entry returns the cached entry for userID, loading from the store on
// first touch. A missing or unreadable snapshot falls back to a fresh
// state; practice never fails on persistence.
func (e *Engine) entry(ctx context.Context, userID string) *userEntry {
	e.mu.Lock()
	ent, ok := e.users[userID]
	if !ok {
		ent = &userEntry{}
		e.users[userID] = ent
	}
	e.mu.Unlock()

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.state != nil {
		return ent
	}

	snap, err := e.repo.Load(ctx, userID)
	switch {
	case err == nil:
		ent.state = stateFromSnapshot(snap)
	case errors.Is(err, store.ErrNotFound):
		ent.state = newUserState(userID, e.now())
	default:
		e.log.Warn("load user state failed, starting fresh",
			zap.String("user", userID), zap.Error(err))
		ent.state = newUserState(userID, e.now())
	}
	return ent
}

// QuestionParams tells the caller what to ask next and under which
// conditions. The engine never sees question text.
type QuestionParams struct {
	TopicID        string
	Difficulty     int
	DifficultyName string

	FSRSStability  float64
	Retrievability float64

	CognitiveLoad       cognitive.Load
	ShouldTakeBreak     bool
	InterleaveSuggested bool
	RecoveryMode        bool
}

// GetNextQuestion computes the parameters for the next question on a
// topic. mastery is the caller's current mastery for the topic; pass a
// negative value to use the engine's stored score.
func (e *Engine) GetNextQuestion(ctx context.Context, userID, topicID string, masteryScore int) QuestionParams {
	ent := e.entry(ctx, userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return e.nextQuestionLocked(ent.state, topicID, masteryScore, 0)
}

// GetNextQuestionForTask is GetNextQuestion with the skill-distance
// adjustment applied: tasks far from the learner's proven skills get
// easier questions.
func (e *Engine) GetNextQuestionForTask(ctx context.Context, userID, topicID string, masteryScore int) QuestionParams {
	ent := e.entry(ctx, userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()

	shift := 0
	if e.distance != nil {
		shift = skillgraph.DifficultyShift(e.distance(ent.state.Mastery, topicID))
	}
	return e.nextQuestionLocked(ent.state, topicID, masteryScore, shift)
}

func (e *Engine) nextQuestionLocked(st *UserState, topicID string, masteryScore, shift int) QuestionParams {
	now := e.now()
	if st.SessionStart.IsZero() {
		st.SessionStart = now
	}
	if st.Detector == nil {
		st.Detector = cognitive.NewLoadDetector(now)
	}
	if masteryScore < 0 {
		masteryScore = st.Mastery[topicID]
	}
	if masteryScore > mastery.Cap {
		masteryScore = mastery.Cap
	}

	cs := cognitive.Assess(st.History, st.Detector, now)
	if cs.Recovery && !st.RecoveryMode {
		st.RecoveryMode = true
		st.RecoveryQuestionsRemaining = recoveryDepth
	}

	card := st.Cards[topicID]
	retr := fsrs.Retrievability(card.ElapsedDays(now), card.Stability)

	perf := adaptive.PerformanceLevel(st.History)
	early := adaptive.EarlyGame(st.Motivation.TotalQuestionsAnswered, firstAnswerAt(st), now)

	var level int
	switch {
	case st.RecoveryMode:
		level = adaptive.MinLevel
		st.RecoveryQuestionsRemaining--
		if st.RecoveryQuestionsRemaining <= 0 {
			if cs.Recovery {
				// Still struggling, extend the episode.
				st.RecoveryQuestionsRemaining = recoveryDepth
			} else {
				st.RecoveryMode = false
			}
		}
	case st.QuickWinsRemaining > 0:
		level = adaptive.MinLevel
		st.QuickWinsRemaining--
	case cs.Flow == cognitive.FlowIn && holdableDifficulty(st.History):
		// The learner is in flow; do not disturb a working difficulty.
		level = st.History[len(st.History)-1].Difficulty
	default:
		level = e.selector.Select(adaptive.Inputs{
			Mastery:          masteryScore,
			Retrievability:   retr,
			CognitiveLoad:    cs.Load,
			RecentAccuracy:   cognitive.Accuracy(cognitive.Tail(st.History, 10)),
			Streak:           st.AnswerStreak,
			PerformanceLevel: perf,
			EarlyGame:        early,
		})
	}

	if early && perf < 0.5 && level > 2 {
		level = 2
	}
	level = adaptive.Clamp(level + shift)

	return QuestionParams{
		TopicID:             topicID,
		Difficulty:          level,
		DifficultyName:      adaptive.Levels[level].Name,
		FSRSStability:       card.Stability,
		Retrievability:      retr,
		CognitiveLoad:       cs.Load,
		ShouldTakeBreak:     cs.ShouldPause,
		InterleaveSuggested: sameTopicRun(st.History, topicID) >= interleaveRunLength,
		RecoveryMode:        st.RecoveryMode,
	}
}

// AnswerResult reports everything that changed from one answer.
type AnswerResult struct {
	Correct      bool
	Rating       fsrs.Rating
	IntervalDays int
	Stability    float64

	MasteryChange int
	NewMastery    int

	XPEarned int
	TotalXP  int
	Streak   int

	// Post-answer assessment, so callers can slow down or stop without
	// waiting for the next question request.
	AccuracyRecent         float64
	ShouldReduceDifficulty bool
	ShouldTakeBreak        bool

	Emotion  feedback.Emotion
	Feedback string

	StreakMessage string
	FreezeUsed    bool
	Milestones    []string
	DecayWarnings []string
}

// ProcessAnswer records an answered question and updates every signal
// that hangs off it. Persistence is best effort; the result is returned
// even when a save fails.
func (e *Engine) ProcessAnswer(ctx context.Context, userID, topicID string, correct bool, responseTimeSec float64, difficulty int) AnswerResult {
	ent := e.entry(ctx, userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()

	st := ent.state
	now := e.now()
	difficulty = adaptive.Clamp(difficulty)

	if st.SessionStart.IsZero() {
		st.SessionStart = now
	}
	if st.Detector == nil {
		st.Detector = cognitive.NewLoadDetector(now)
	}
	st.Detector.AddResponse(responseTimeSec, correct)

	// Memory model update.
	rating := fsrs.RatingFor(correct, responseTimeSec)
	card, ok := st.Cards[topicID]
	if !ok {
		card = fsrs.NewCard()
	}
	card, interval := e.sched.Review(card, rating, now)
	st.Cards[topicID] = card

	if correct {
		st.AnswerStreak = maxInt(0, st.AnswerStreak) + 1
	} else {
		st.AnswerStreak = minInt(0, st.AnswerStreak) - 1
	}

	// Mastery update.
	current := st.Mastery[topicID]
	delta := mastery.Delta(current, correct, difficulty, responseTimeSec, st.AnswerStreak)
	next := mastery.Apply(current, delta, correct)
	st.Mastery[topicID] = next
	if next >= masteredThreshold && current < masteredThreshold {
		st.Motivation.SkillsMastered++
	}

	xp := 0
	if correct {
		xp = adaptive.Levels[difficulty].XP
		if st.AnswerStreak >= streakXPThreshold {
			xp = int(float64(xp) * streakXPBonus)
		}
	}
	st.TotalXP += xp
	st.LastTopic = topicID

	st.appendHistory(cognitive.Response{
		TopicID:         topicID,
		Correct:         correct,
		ResponseTimeSec: responseTimeSec,
		Difficulty:      difficulty,
		Timestamp:       now,
	})

	// A bad stretch earns a few guaranteed-easy questions to rebuild
	// confidence before the next real one. The error streak is wiped at
	// the same time so the easy run starts from a clean slate.
	consec := cognitive.ConsecutiveErrors(st.History)
	if !correct && !st.RecoveryMode && st.QuickWinsRemaining == 0 {
		recent := cognitive.Tail(st.History, 10)
		if consec >= 3 || (len(recent) >= 5 && cognitive.Accuracy(recent) < 0.4) {
			st.QuickWinsRemaining = quickWinCount
			if adaptive.PerformanceLevel(st.History) < strugglingPerformance {
				st.QuickWinsRemaining = quickWinCountStruggling
			}
			st.AnswerStreak = 0
		}
	}

	// Re-assess with this answer included; the result carries the
	// slow-down and break signals alongside the scores.
	cs := cognitive.Assess(st.History, st.Detector, now)
	accRecent := cognitive.Accuracy(cognitive.Tail(st.History, 10))

	emotion := feedback.Detect(st.History, correct, st.AnswerStreak, consec)
	msg := e.gen.Generate(emotion, correct, st.AnswerStreak, next-current)

	st.Motivation.TotalQuestionsAnswered++
	streakMsg, freezeUsed := motivation.Touch(&st.Motivation, now)
	milestones := motivation.Milestones(&st.Motivation)

	var warnings []string
	if st.Motivation.TotalQuestionsAnswered%decayCheckEvery == 0 {
		warnings = motivation.DecayWarnings(st.Mastery, st.Cards, now)
	}

	e.maybeAutosave(st, now)

	shouldReduce := cs.Load == cognitive.LoadHigh ||
		cs.Load == cognitive.LoadOverload || accRecent < 0.5

	return AnswerResult{
		Correct:                correct,
		Rating:                 rating,
		IntervalDays:           interval,
		Stability:              card.Stability,
		MasteryChange:          next - current,
		NewMastery:             next,
		XPEarned:               xp,
		TotalXP:                st.TotalXP,
		Streak:                 st.AnswerStreak,
		AccuracyRecent:         accRecent,
		ShouldReduceDifficulty: shouldReduce,
		ShouldTakeBreak:        cs.ShouldPause,
		Emotion:                emotion,
		Feedback:               msg,
		StreakMessage:          streakMsg,
		FreezeUsed:             freezeUsed,
		Milestones:             milestones,
		DecayWarnings:          warnings,
	}
}

// maybeAutosave fires a background save every N answers. Failures are
// logged and swallowed; the caller still gets their result.
func (e *Engine) maybeAutosave(st *UserState, now time.Time) {
	st.answersSinceSave++
	if st.answersSinceSave < e.autosaveEvery {
		st.dirty = true
		return
	}
	st.answersSinceSave = 0
	st.dirty = false

	snap := st.snapshot(now)
	e.saves.Add(1)
	go func() {
		defer e.saves.Done()
		if err := e.repo.Save(context.Background(), snap); err != nil {
			e.log.Warn("autosave failed",
				zap.String("user", snap.Data.UserID), zap.Error(err))
		}
	}()
}

// ResetSession persists the state, then clears everything scoped to the
// session: the load detector, the response window, recovery bookkeeping
// and the session clock. Streaks, mastery and cards survive.
func (e *Engine) ResetSession(ctx context.Context, userID string) {
	ent := e.entry(ctx, userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()

	st := ent.state
	if err := e.repo.Save(ctx, st.snapshot(e.now())); err != nil {
		e.log.Warn("save before session reset failed",
			zap.String("user", userID), zap.Error(err))
	}

	st.Detector = nil
	st.History = nil
	st.SessionStart = time.Time{}
	st.RecoveryMode = false
	st.RecoveryQuestionsRemaining = 0
	st.QuickWinsRemaining = 0
	st.answersSinceSave = 0
	st.dirty = false
}

// TopicStats is the per-topic slice of Stats.
type TopicStats struct {
	Mastery        int
	Stability      float64
	Retrievability float64
	NextReviewDays int
	Reps           int
	Lapses         int
}

// Stats is a read-only summary of one learner.
type Stats struct {
	TotalXP        int
	AnswerStreak   int
	DailyStreak    int
	TotalQuestions int
	SkillsMastered int
	RecentAccuracy float64
	Load           cognitive.Load
	Topics         map[string]TopicStats
}

// Stats summarizes the learner's progress across all topics.
func (e *Engine) Stats(ctx context.Context, userID string) Stats {
	ent := e.entry(ctx, userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()

	st := ent.state
	now := e.now()

	out := Stats{
		TotalXP:        st.TotalXP,
		AnswerStreak:   st.AnswerStreak,
		DailyStreak:    st.Motivation.DailyStreak,
		TotalQuestions: st.Motivation.TotalQuestionsAnswered,
		SkillsMastered: st.Motivation.SkillsMastered,
		RecentAccuracy: cognitive.Accuracy(cognitive.Tail(st.History, 10)),
		Load:           cognitive.LoadOptimal,
		Topics:         make(map[string]TopicStats, len(st.Cards)),
	}
	if st.Detector != nil {
		out.Load = st.Detector.Assess(now).Load
	}
	for topic, card := range st.Cards {
		out.Topics[topic] = TopicStats{
			Mastery:        st.Mastery[topic],
			Stability:      card.Stability,
			Retrievability: fsrs.Retrievability(card.ElapsedDays(now), card.Stability),
			NextReviewDays: e.sched.Interval(card.Stability),
			Reps:           card.Reps,
			Lapses:         card.Lapses,
		}
	}
	return out
}

// StartAutoFlush begins periodic best-effort persistence of dirty
// states on top of the per-answer autosave.
func (e *Engine) StartAutoFlush(interval time.Duration) error {
	if e.flusher != nil {
		return errors.New("auto flush already started")
	}
	e.flusher = gocron.NewScheduler(time.UTC)
	if _, err := e.flusher.Every(interval).Do(e.flushDirty); err != nil {
		e.flusher = nil
		return err
	}
	e.flusher.StartAsync()
	return nil
}

func (e *Engine) flushDirty() {
	now := e.now()
	for _, ent := range e.entries() {
		ent.mu.Lock()
		var snap *store.Snapshot
		if ent.state != nil && ent.state.dirty {
			snap = ent.state.snapshot(now)
			ent.state.dirty = false
			ent.state.answersSinceSave = 0
		}
		ent.mu.Unlock()

		if snap == nil {
			continue
		}
		if err := e.repo.Save(context.Background(), snap); err != nil {
			e.log.Warn("periodic flush failed",
				zap.String("user", snap.Data.UserID), zap.Error(err))
		}
	}
}

func (e *Engine) entries() []*userEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*userEntry, 0, len(e.users))
	for _, ent := range e.users {
		out = append(out, ent)
	}
	return out
}

// Close stops the background flusher, waits for in-flight saves and
// writes every remaining dirty state.
func (e *Engine) Close() {
	if e.flusher != nil {
		e.flusher.Stop()
		e.flusher = nil
	}
	e.saves.Wait()
	e.flushDirtyAll()
}

func (e *Engine) flushDirtyAll() {
	now := e.now()
	for _, ent := range e.entries() {
		ent.mu.Lock()
		var snap *store.Snapshot
		if ent.state != nil {
			snap = ent.state.snapshot(now)
			ent.state.dirty = false
		}
		ent.mu.Unlock()

		if snap == nil {
			continue
		}
		if err := e.repo.Save(context.Background(), snap); err != nil {
			e.log.Warn("final flush failed",
				zap.String("user", snap.Data.UserID), zap.Error(err))
		}
	}
}

// holdableDifficulty reports whether the last answered difficulty is in
// the range worth holding during flow.
func holdableDifficulty(history []cognitive.Response) bool {
	if len(history) == 0 {
		return false
	}
	d := history[len(history)-1].Difficulty
	return d >= 2 && d <= 4
}

// sameTopicRun counts trailing answers on topicID within the last ten.
func sameTopicRun(history []cognitive.Response, topicID string) int {
	recent := cognitive.Tail(history, 10)
	run := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].TopicID != topicID {
			break
		}
		run++
	}
	return run
}

func firstAnswerAt(st *UserState) *time.Time {
	if st.CreatedAt.IsZero() {
		return nil
	}
	t := st.CreatedAt
	return &t
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// lockedSource makes a rand.Source safe for use from multiple per-user
// goroutines.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func newLockedSource(seed int64) *lockedSource {
	return &lockedSource{src: rand.NewSource(seed).(rand.Source64)}
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}
