package tempo

import "errors"

// Sentinel kinds for tempo errors.
var (
	// ErrInvalidTempo is returned for non-positive BPM values or negative
	// change beats.
	ErrInvalidTempo = errors.New("invalid tempo")
)
