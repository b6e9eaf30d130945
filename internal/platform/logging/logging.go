// Package logging builds the process-wide *slog.Logger. There is no global
// logger variable: main constructs one instance and every constructor in
// this repo takes it (or a tagged child of it) as a dependency.
package logging

import (
	"log/slog"
	"os"
)

// New builds the logger for the given environment. Production gets a JSON
// handler suitable for log aggregation; anything else gets human-readable
// text, matching the teacher's dev-vs-prod split in cmd/server.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Tag returns a child logger that adds a "component" attribute to every
// record; it does not alter the message text.
func Tag(base *slog.Logger, component string) *slog.Logger {
	return base.With("component", component)
}
