package player

import "errors"

var (
	ErrNotLoaded    = errors.New("no media loaded")
	ErrNotReady     = errors.New("media is not ready for this command")
	ErrNotRetryable = errors.New("playback error is not retryable")
	ErrEmptySource  = errors.New("media source url is empty")
)
