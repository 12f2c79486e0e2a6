// Package connection tracks the host websocket attached to each session.
package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("session already has a host connection")
)
