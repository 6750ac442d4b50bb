// Package logging builds the zap logger used across the CLI and engine.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a logger for the given mode: "dev" for human-readable
// console output, "prod" (or empty) for JSON.
func New(mode string) (*zap.Logger, error) {
	switch mode {
	case "dev":
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return log, nil
	case "", "prod":
		log, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build prod logger: %w", err)
		}
		return log, nil
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
}
