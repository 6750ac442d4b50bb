package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lberthe/cadence/internal/fsrs"
	"github.com/lberthe/cadence/internal/motivation"
)

// userStateRepo implements UserStateRepo over the user_states table.
type userStateRepo struct {
	db *sqlx.DB
}

// One row per learner. Scheduler cards, mastery, history, and motivation
// are JSON blobs; scalar progress fields get their own columns so they
// stay queryable without unpacking JSON.
type userStateRow struct {
	UserID         string `db:"user_id"`
	FSRSCards      string `db:"fsrs_cards"`
	Mastery        string `db:"mastery"`
	History        string `db:"history"`
	Streak         int    `db:"streak"`
	LastTopic      string `db:"last_topic"`
	TotalXP        int    `db:"total_xp"`
	ResponsesCount int    `db:"responses_count"`
	Motivation     string `db:"motivation"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (r *userStateRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Data.UserID == "" {
		return errors.New("save user state: empty user id")
	}

	cardsJSON, err := json.Marshal(snap.Data.Cards)
	if err != nil {
		return fmt.Errorf("marshal fsrs cards: %w", err)
	}
	masteryJSON, err := json.Marshal(snap.Data.Mastery)
	if err != nil {
		return fmt.Errorf("marshal mastery: %w", err)
	}
	historyJSON, err := json.Marshal(snap.Data.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	motivJSON, err := json.Marshal(snap.Motivation)
	if err != nil {
		return fmt.Errorf("marshal motivation state: %w", err)
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	createdAt := snap.Data.CreatedAt
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_states (user_id, fsrs_cards, mastery, history,
			streak, last_topic, total_xp, responses_count, motivation,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			fsrs_cards      = excluded.fsrs_cards,
			mastery         = excluded.mastery,
			history         = excluded.history,
			streak          = excluded.streak,
			last_topic      = excluded.last_topic,
			total_xp        = excluded.total_xp,
			responses_count = excluded.responses_count,
			motivation      = excluded.motivation,
			updated_at      = excluded.updated_at`,
		snap.Data.UserID, string(cardsJSON), string(masteryJSON),
		string(historyJSON), snap.Data.AnswerStreak, snap.Data.LastTopic,
		snap.Data.TotalXP, snap.Motivation.TotalQuestionsAnswered,
		string(motivJSON), createdAt.Format(time.RFC3339Nano),
		updatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save user state: %w", err)
	}
	return nil
}

func (r *userStateRepo) Load(ctx context.Context, userID string) (*Snapshot, error) {
	var row userStateRow
	err := r.db.GetContext(ctx, &row,
		`SELECT user_id, fsrs_cards, mastery, history, streak, last_topic,
			total_xp, responses_count, motivation, created_at, updated_at
		FROM user_states WHERE user_id = ?`,
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user state: %w", err)
	}

	snap := &Snapshot{}
	snap.Data.UserID = userID
	snap.Data.AnswerStreak = row.Streak
	snap.Data.LastTopic = row.LastTopic
	snap.Data.TotalXP = row.TotalXP

	// A corrupt JSON column loses that slice of state but never blocks
	// the learner from practicing.
	if err := json.Unmarshal([]byte(row.FSRSCards), &snap.Data.Cards); err != nil {
		snap.Data.Cards = make(map[string]fsrs.Card)
	}
	if err := json.Unmarshal([]byte(row.Mastery), &snap.Data.Mastery); err != nil {
		snap.Data.Mastery = make(map[string]int)
	}
	if err := json.Unmarshal([]byte(row.History), &snap.Data.History); err != nil {
		snap.Data.History = nil
	}
	if err := json.Unmarshal([]byte(row.Motivation), &snap.Motivation); err != nil {
		snap.Motivation = motivation.NewState()
		snap.Motivation.TotalQuestionsAnswered = row.ResponsesCount
	}
	if snap.Motivation.MilestonesReached == nil {
		snap.Motivation.MilestonesReached = make(map[string]bool)
	}

	if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		snap.Data.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, row.UpdatedAt); err == nil {
		snap.UpdatedAt = t
	}
	return snap, nil
}

func (r *userStateRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_states WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user state: %w", err)
	}
	return nil
}

func (r *userStateRepo) ListUsers(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM user_states ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}
