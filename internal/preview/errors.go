package preview

import "errors"

var (
	ErrNoSource   = errors.New("preview source is not bound")
	ErrClosed     = errors.New("preview pipeline closed")
	ErrEmptyFrame = errors.New("auxiliary surface returned an empty frame")
	ErrGeneration = errors.New("preview generation failed")
)
