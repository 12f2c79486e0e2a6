package surface

import "errors"

var (
	ErrUnknownKind   = errors.New("unknown surface kind")
	ErrUnknownIntent = errors.New("unknown intent")
	ErrClosed        = errors.New("subscription closed")
)
