// Package question supplies question content to the engine. The engine
// never inspects question text; it only asks for content at a topic and
// difficulty level and receives a correctness check back.
package question

import (
	"context"
	"strings"
)

// Question is a single exercise with its correctness check.
type Question struct {
	ID     string
	Prompt string
	Answer string

	// Check reports whether a learner's raw answer is correct.
	Check func(answer string) bool
}

// Generator produces questions for a topic at a difficulty level 1-5.
type Generator interface {
	Generate(ctx context.Context, topicID string, level int) (*Question, error)
}

// NormalizeAnswer trims and lowercases a raw answer for comparison.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
