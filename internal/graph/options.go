package graph

import (
	"log/slog"

	"github.com/google/uuid"
)

// IDGenerator produces commit identifiers.
// Implemented by UUIDv7Generator (production) and testutil.SequenceGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 commit IDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger used for replay diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver installs an Observer receiving context and change events.
func WithObserver(o Observer) Option {
	return func(s *System) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithIDGenerator overrides the commit ID generator.
// Use a fixed generator for golden trace comparison.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *System) {
		if g != nil {
			s.ids = g
		}
	}
}
