package judge

import (
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/scoring"
	"github.com/okian/playalong/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithObserver adds an observer. Observers are notified in the order added.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithWindows sets the timing thresholds. Invalid windows are ignored.
func WithWindows(w model.Windows) Option {
	return func(e *Engine) {
		if w.Validate() == nil {
			e.windows = w
		}
	}
}

// WithScoringMode sets the initial scoring mode.
func WithScoringMode(mode scoring.Mode) Option {
	return func(e *Engine) {
		e.scoringOpts = append(e.scoringOpts, scoring.WithMode(mode))
	}
}

// WithWeights sets the timing weight table used by the scorer.
func WithWeights(w scoring.Weights) Option {
	return func(e *Engine) {
		e.scoringOpts = append(e.scoringOpts, scoring.WithWeights(w))
	}
}

// WithLogger sets the logger used for per-edge debug records.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
