package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrUnknownMode   = errors.New("unknown scoring mode")
	ErrInvalidWeight = errors.New("invalid timing weight")
)
