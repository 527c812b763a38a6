package app

import (
	"github.com/okian/playalong/internal/adapters/repository"
	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/scoring"
	"github.com/okian/playalong/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize sets the maximum number of key events buffered per frame.
func WithQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithScoringMode sets the initial scoring mode.
func WithScoringMode(mode scoring.Mode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithWindows sets the timing thresholds. Invalid windows are ignored.
func WithWindows(w model.Windows) Option {
	return func(s *Session) {
		if w.Validate() == nil {
			s.windows = w
		}
	}
}

// WithWeights sets the timing weight table.
func WithWeights(w scoring.Weights) Option {
	return func(s *Session) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// WithControls sets the key bindings.
func WithControls(c judge.Controls) Option {
	return func(s *Session) {
		if len(c) > 0 {
			s.controls = c
		}
	}
}

// WithStore enables session history. Stop saves every finished session.
func WithStore(store repository.Store) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithObserver adds an observer notified of every engine event.
func WithObserver(o judge.Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}
