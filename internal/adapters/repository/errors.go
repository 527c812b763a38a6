package repository

import "errors"

// Sentinel kinds for session history errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidLimit = errors.New("invalid session limit")
	ErrClosed       = errors.New("store closed")
)
