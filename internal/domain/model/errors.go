package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownMethod  = errors.New("unknown input method")
	ErrInvalidWindows = errors.New("invalid timing windows")
)
