package replay

import "errors"

// Sentinel kinds for replay errors.
var (
	ErrInvalidReplay = errors.New("invalid replay")
)
