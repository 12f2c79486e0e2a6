// Package kvtest holds the behaviour every kv.Backend must share.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
)

// Run exercises backend. The backend must be empty.
func Run(t *testing.T, backend kv.Backend) {
	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		h, err := backend.Acquire(ctx, "empty")
		require.NoError(t, err)
		defer h.Release(ctx) //nolint:errcheck

		list, err := h.Get(ctx, "bookmarks")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("set and get keep order", func(t *testing.T) {
		h, err := backend.Acquire(ctx, "order")
		require.NoError(t, err)
		defer h.Release(ctx) //nolint:errcheck

		want := []string{`{"id":"b"}`, `{"id":"a"}`, `{"id":"c"}`}
		require.NoError(t, h.Set(ctx, "bookmarks", want))

		got, err := h.Get(ctx, "bookmarks")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		require.NoError(t, h.Set(ctx, "bookmarks", want[:1]))
		got, err = h.Get(ctx, "bookmarks")
		require.NoError(t, err)
		assert.Equal(t, want[:1], got)

		require.NoError(t, h.Set(ctx, "bookmarks", nil))
		got, err = h.Get(ctx, "bookmarks")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("scope is single holder", func(t *testing.T) {
		h, err := backend.Acquire(ctx, "exclusive")
		require.NoError(t, err)

		_, err = backend.Acquire(ctx, "exclusive")
		assert.ErrorIs(t, err, kv.ErrScopeBusy)

		require.NoError(t, h.Release(ctx))
		assert.ErrorIs(t, h.Release(ctx), kv.ErrReleased)
		_, err = h.Get(ctx, "x")
		assert.ErrorIs(t, err, kv.ErrReleased)

		again, err := backend.Acquire(ctx, "exclusive")
		require.NoError(t, err)
		require.NoError(t, again.Release(ctx))
	})

	t.Run("refresh keeps the scope", func(t *testing.T) {
		h, err := backend.Acquire(ctx, "refresh")
		require.NoError(t, err)

		require.NoError(t, h.Refresh(ctx))
		_, err = backend.Acquire(ctx, "refresh")
		assert.ErrorIs(t, err, kv.ErrScopeBusy)

		require.NoError(t, h.Release(ctx))
		assert.ErrorIs(t, h.Refresh(ctx), kv.ErrReleased)
	})

	t.Run("data survives release", func(t *testing.T) {
		h, err := backend.Acquire(ctx, "durable")
		require.NoError(t, err)
		require.NoError(t, h.Set(ctx, "watch-later", []string{"one"}))
		require.NoError(t, h.Release(ctx))

		h, err = backend.Acquire(ctx, "durable")
		require.NoError(t, err)
		defer h.Release(ctx) //nolint:errcheck

		got, err := h.Get(ctx, "watch-later")
		require.NoError(t, err)
		assert.Equal(t, []string{"one"}, got)
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		a, err := backend.Acquire(ctx, "scope-a")
		require.NoError(t, err)
		defer a.Release(ctx) //nolint:errcheck
		b, err := backend.Acquire(ctx, "scope-b")
		require.NoError(t, err)
		defer b.Release(ctx) //nolint:errcheck

		require.NoError(t, a.Set(ctx, "bookmarks", []string{"a"}))
		got, err := b.Get(ctx, "bookmarks")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
