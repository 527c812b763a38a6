package model

import "math"

// Timing is the grade given to a judged edge.
type Timing int

const (
	Ace Timing = iota
	Good
	Barely
	Miss
)

// Timings lists every grade from best to worst.
var Timings = []Timing{Ace, Good, Barely, Miss}

func (t Timing) String() string {
	switch t {
	case Ace:
		return "ace"
	case Good:
		return "good"
	case Barely:
		return "barely"
	case Miss:
		return "miss"
	}
	return "unknown"
}

// Default timing thresholds, in seconds.
const (
	DefaultAceOffset    = 1.5 / 60
	DefaultGoodOffset   = 5.5 / 60
	DefaultBarelyOffset = 7.0 / 60
	DefaultMaxOffset    = 9.0 / 60
)

// Windows holds the absolute offset thresholds used to grade an edge. Max is
// the tolerance window: an edge further away than Max can no longer be hit.
type Windows struct {
	Ace    float64
	Good   float64
	Barely float64
	Max    float64
}

// DefaultWindows returns the standard thresholds.
func DefaultWindows() Windows {
	return Windows{
		Ace:    DefaultAceOffset,
		Good:   DefaultGoodOffset,
		Barely: DefaultBarelyOffset,
		Max:    DefaultMaxOffset,
	}
}

// Validate checks 0 < Ace <= Good <= Barely <= Max.
func (w Windows) Validate() error {
	if w.Ace <= 0 || w.Good < w.Ace || w.Barely < w.Good || w.Max < w.Barely {
		return ErrInvalidWindows
	}
	return nil
}

// Classify grades a signed offset.
func (w Windows) Classify(offset float64) Timing {
	abs := math.Abs(offset)
	switch {
	case abs <= w.Ace:
		return Ace
	case abs <= w.Good:
		return Good
	case abs <= w.Barely:
		return Barely
	default:
		return Miss
	}
}

// InputResult is the outcome of judging one edge.
type InputResult struct {
	Offset float64 // seconds; negative is early
	Timing Timing
}

// InputResults holds the one or two results of a fully resolved action.
type InputResults struct {
	Action  InputAction
	results []InputResult
}

// NewInputResults binds results to their action. The slice is copied.
func NewInputResults(action InputAction, results ...InputResult) InputResults {
	cp := make([]InputResult, len(results))
	copy(cp, results)
	return InputResults{Action: action, results: cp}
}

// Results returns a copy of the results, start edge first.
func (r InputResults) Results() []InputResult {
	cp := make([]InputResult, len(r.results))
	copy(cp, r.results)
	return cp
}

// Len returns the number of results.
func (r InputResults) Len() int {
	return len(r.results)
}

// Start returns the start edge result.
func (r InputResults) Start() InputResult {
	return r.results[0]
}

// End returns the end edge result, if the action has one.
func (r InputResults) End() (InputResult, bool) {
	if len(r.results) < 2 {
		return InputResult{}, false
	}
	return r.results[1], true
}
