// Package scoring turns judged edges into a 0-100 score.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/playalong/internal/domain/model"
)

const maxScoreValue = 100

// Mode selects how a single result is weighted.
type Mode int

const (
	// ByTiming weights a result by its timing grade.
	ByTiming Mode = iota
	// ByOffset weights a result by how close its offset was to zero,
	// relative to the tolerance window.
	ByOffset
)

func (m Mode) String() string {
	switch m {
	case ByTiming:
		return "timing"
	case ByOffset:
		return "offset"
	}
	return "unknown"
}

// ParseMode accepts "timing" or "offset" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "timing":
		return ByTiming, nil
	case "offset":
		return ByOffset, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Weights maps each timing grade to its contribution in [0,1].
type Weights map[model.Timing]float64

// DefaultWeights returns the standard grade weights.
func DefaultWeights() Weights {
	return Weights{
		model.Ace:    1.0,
		model.Good:   0.85,
		model.Barely: 0.6,
		model.Miss:   0.0,
	}
}

// WeightsFromNames converts a name-keyed table such as one read from
// configuration. Missing grades keep their default weight.
func WeightsFromNames(named map[string]float64) (Weights, error) {
	w := DefaultWeights()
	for name, v := range named {
		found := false
		for _, t := range model.Timings {
			if strings.EqualFold(t.String(), name) {
				w[t] = v
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: unknown timing %q", ErrInvalidWeight, name)
		}
	}
	return w, w.Validate()
}

// Validate checks every grade has a weight in [0,1].
func (w Weights) Validate() error {
	for _, t := range model.Timings {
		v, ok := w[t]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidWeight, t)
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s=%g", ErrInvalidWeight, t, v)
		}
	}
	return nil
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithMode sets the initial weighting mode.
func WithMode(mode Mode) Option {
	return func(s *Scorer) {
		s.mode = mode
	}
}

// WithWeights sets the grade weight table. Invalid tables are ignored.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.Validate() == nil {
			s.weights = make(Weights, len(w))
			for k, v := range w {
				s.weights[k] = v
			}
		}
	}
}

// WithMaxOffset sets the tolerance window used by ByOffset.
func WithMaxOffset(maxOffset float64) Option {
	return func(s *Scorer) {
		if maxOffset > 0 {
			s.maxOffset = maxOffset
		}
	}
}

// Scorer computes scores from judged results. It holds no per-run state, so
// a score is always recomputed from the full result set.
type Scorer struct {
	mode      Mode
	weights   Weights
	maxOffset float64
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		mode:      ByTiming,
		weights:   DefaultWeights(),
		maxOffset: model.DefaultMaxOffset,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the current weighting mode.
func (s *Scorer) Mode() Mode {
	return s.mode
}

// SetMode switches the weighting mode.
func (s *Scorer) SetMode(mode Mode) {
	s.mode = mode
}

// Weight returns the contribution of one result in [0,1].
func (s *Scorer) Weight(r model.InputResult) float64 {
	if s.mode == ByTiming {
		return s.weights[r.Timing]
	}
	return 1 - clamp(math.Abs(r.Offset)/s.maxOffset, 0, 1)
}

// Score returns 100 * sum(weights) / expected, clamped to [0,100]. It is 0
// when nothing is expected.
func (s *Scorer) Score(results []model.InputResult, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += s.Weight(r)
	}
	return clamp(sum*maxScoreValue/float64(expected), 0, maxScoreValue)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
