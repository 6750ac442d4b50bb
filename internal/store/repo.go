package store

import (
	"context"
	"errors"
	"time"

	"github.com/lberthe/cadence/internal/cognitive"
	"github.com/lberthe/cadence/internal/fsrs"
	"github.com/lberthe/cadence/internal/motivation"
)

// ErrNotFound is returned by Load when no state exists for the user.
var ErrNotFound = errors.New("user state not found")

// UserStateData is the persisted snapshot of a learner. It carries only
// durable state; per-session signals (cognitive load window, recovery
// mode) are rebuilt fresh each session.
type UserStateData struct {
	UserID  string               `json:"user_id"`
	Cards   map[string]fsrs.Card `json:"cards"`
	Mastery map[string]int       `json:"mastery"`

	// History is the rolling answer window, capped by the engine.
	History []cognitive.Response `json:"history"`

	AnswerStreak int    `json:"answer_streak"`
	TotalXP      int    `json:"total_xp"`
	LastTopic    string `json:"last_topic,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Snapshot pairs durable learner state with its motivation sub-state.
type Snapshot struct {
	Data       UserStateData
	Motivation motivation.State
	UpdatedAt  time.Time
}

// UserStateRepo persists learner snapshots keyed by user id.
type UserStateRepo interface {
	// Save upserts the snapshot for snap.Data.UserID.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the snapshot for userID, or ErrNotFound.
	Load(ctx context.Context, userID string) (*Snapshot, error)

	// Delete removes the snapshot for userID. Deleting a missing user
	// is not an error.
	Delete(ctx context.Context, userID string) error

	// ListUsers returns all known user ids, sorted.
	ListUsers(ctx context.Context) ([]string, error)
}
