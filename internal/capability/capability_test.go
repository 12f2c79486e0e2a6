package capability_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/testutil"
)

func newAdapter(set capability.Set) (*capability.Adapter, *testutil.Platform) {
	platform := testutil.NewPlatform(set)
	return capability.NewAdapter(platform, slog.New(slog.NewTextHandler(io.Discard, nil))), platform
}

func TestUnavailableIsNoop(t *testing.T) {
	a, platform := newAdapter(capability.Set{Fullscreen: true})

	err := a.Request(context.Background(), capability.PictureInPicture)
	assert.ErrorIs(t, err, capability.ErrUnavailable)
	assert.Empty(t, platform.Invocations())
}

func TestRequestAndExit(t *testing.T) {
	a, platform := newAdapter(capability.Set{Fullscreen: true, Clipboard: true})
	ctx := context.Background()

	require.NoError(t, a.Request(ctx, capability.Fullscreen))
	require.NoError(t, a.Exit(ctx, capability.Fullscreen))
	require.NoError(t, a.WriteClipboard(ctx, "https://cdn.example.com/a.mp4#t=12"))

	assert.Equal(t, []testutil.Invocation{
		{Kind: capability.Fullscreen, Action: capability.ActionRequest},
		{Kind: capability.Fullscreen, Action: capability.ActionExit},
		{Kind: capability.Clipboard, Action: capability.ActionWrite, Data: "https://cdn.example.com/a.mp4#t=12"},
	}, platform.Invocations())
}

func TestRejected(t *testing.T) {
	a, platform := newAdapter(capability.Set{PictureInPicture: true})
	platform.Reject(capability.ErrDenied)

	err := a.Request(context.Background(), capability.PictureInPicture)
	assert.ErrorIs(t, err, capability.ErrDenied)
}

func TestNilPlatform(t *testing.T) {
	a := capability.NewAdapter(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, a.Available(capability.Clipboard))
}
