// Package kv defines the key-value persistence collaborator: lists of strings under
// keys, grouped into scopes that one session at a time may hold.
package kv

import (
	"context"
	"errors"
)

var (
	ErrScopeBusy = errors.New("scope is held by another session")
	ErrReleased  = errors.New("scope handle already released")
	ErrLeaseLost = errors.New("scope lease lost")
	ErrClosed    = errors.New("backend closed")
)

type Store interface {
	// Get returns the list under key, or an empty list when nothing is stored.
	Get(ctx context.Context, key string) ([]string, error)
	// Set replaces the list under key. An empty list removes it.
	Set(ctx context.Context, key string, list []string) error
}

// Handle is an acquired scope. It must be released at session teardown.
type Handle interface {
	Store
	// Refresh extends the lease without touching data. It fails with ErrLeaseLost
	// once another holder has taken the scope.
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

type Backend interface {
	Acquire(ctx context.Context, scope string) (Handle, error)
	Close() error
}
