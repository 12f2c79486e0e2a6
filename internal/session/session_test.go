package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/chapter"
	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/internal/media/remote"
	"github.com/val-x/Val-X-Site-sub002/internal/player"
	"github.com/val-x/Val-X-Site-sub002/internal/playlist"
	"github.com/val-x/Val-X-Site-sub002/internal/preview"
	"github.com/val-x/Val-X-Site-sub002/internal/quality"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv/inmemory"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
	"github.com/val-x/Val-X-Site-sub002/internal/testutil"
)

const mediaURL = "https://cdn.example.com/talk.mp4"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	s        *Session
	prim     *testutil.Primitive
	platform *testutil.Platform
	host     *remote.Host
	aux      *testutil.Surface
}

func basicOptions() Options {
	return Options{MediaURL: mediaURL, MediaID: "talk", Title: "Talk"}
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		prim: testutil.NewPrimitive(),
		platform: testutil.NewPlatform(capability.Set{
			Fullscreen:         true,
			PictureInPicture:   true,
			Clipboard:          true,
			NetworkInformation: true,
		}),
		host: remote.NewHost(remote.NewOutbox(16), time.Second, discard),
		aux:  testutil.NewSurface(),
	}

	handle, err := inmemory.NewRepo().Acquire(context.Background(), "viewer")
	require.NoError(t, err)

	s, err := New("s-1", opts, Config{Tick: time.Hour}, Deps{
		Primitive: h.prim,
		Platform:  h.platform,
		Network:   h.host,
		Chrome:    h.host,
		Auxiliary: h.aux,
		Store:     handle,
	}, discard)
	require.NoError(t, err)

	s.Start()
	t.Cleanup(s.Close)
	h.s = s
	h.sync(t)

	return h
}

func (h *harness) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, h.s.Do(context.Background(), func() {}))
}

func (h *harness) emit(t *testing.T, ev media.Event) {
	t.Helper()
	h.prim.Emit(ev)
	h.sync(t)
}

func (h *harness) dispatch(in surface.Intent) error {
	return h.s.Dispatch(context.Background(), in)
}

func (h *harness) tick(t *testing.T, dt time.Duration) {
	t.Helper()
	require.NoError(t, h.s.Do(context.Background(), func() { h.s.tick(dt) }))
}

func (h *harness) snapshot(t *testing.T) surface.Snapshot {
	t.Helper()
	h.sync(t)

	snap, ok := h.s.Snapshot()
	require.True(t, ok)
	return snap
}

// latest reads the published snapshot without waiting on the loop.
func (h *harness) latest() surface.Snapshot {
	snap, _ := h.s.Snapshot()
	return snap
}

func (h *harness) state(t *testing.T) player.State {
	t.Helper()
	return h.snapshot(t).Playback
}

func TestStartLoadsInitialSource(t *testing.T) {
	opts := basicOptions()
	opts.InitialPosition = 12
	opts.Autoplay = true
	h := newHarness(t, opts)

	assert.Equal(t, []testutil.Call{{Op: "load", Arg: mediaURL}}, h.prim.Calls())
	assert.Equal(t, player.StatusLoading, h.state(t).Status)

	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 60})

	st := h.state(t)
	assert.Equal(t, player.StatusPlaying, st.Status)
	assert.Equal(t, 12.0, st.CurrentTime)
	assert.Equal(t, []string{"load", "seek", "play"}, h.prim.Ops())
}

func TestActiveChapterFollowsTick(t *testing.T) {
	opts := basicOptions()
	opts.Chapters = []chapter.Chapter{
		{ID: "1", Title: "Intro", StartTime: 0},
		{ID: "2", Title: "Demo", StartTime: 60},
		{ID: "3", Title: "Q&A", StartTime: 120},
	}
	h := newHarness(t, opts)

	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 180})
	h.emit(t, media.Event{Type: media.EventTimeChanged, Time: 95})
	h.tick(t, 250*time.Millisecond)

	snap := h.snapshot(t)
	require.NotNil(t, snap.Chapter)
	assert.Equal(t, "2", snap.Chapter.Chapter.ID)
	assert.InDelta(t, 0.583, snap.Chapter.Progress, 0.001)
	assert.Len(t, snap.Chapters, 3)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentChapterStep, Direction: 1}))
	assert.Equal(t, 120.0, h.state(t).CurrentTime)
	assert.Equal(t, "3", h.snapshot(t).Chapter.Chapter.ID)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentChapterSelect, ChapterID: "1"}))
	assert.Equal(t, 0.0, h.state(t).CurrentTime)

	assert.ErrorIs(t, h.dispatch(surface.Intent{Kind: surface.IntentChapterSelect, ChapterID: "9"}), ErrUnknownChapter)
}

func playlistOptions(index int) Options {
	return Options{
		Playlist: []playlist.Entry{
			{ID: "a", Title: "A", MediaURL: "https://cdn.example.com/a.mp4"},
			{ID: "b", Title: "B", MediaURL: "https://cdn.example.com/b.mp4"},
			{ID: "c", Title: "C", MediaURL: "https://cdn.example.com/c.mp4"},
		},
		PlaylistIndex: index,
		Autoplay:      true,
	}
}

func TestEndedOnLastEntryStops(t *testing.T) {
	h := newHarness(t, playlistOptions(2))

	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 30})
	h.emit(t, media.Event{Type: media.EventEnded})

	snap := h.snapshot(t)
	assert.Equal(t, player.StatusEnded, snap.Playback.Status)
	assert.False(t, snap.Playback.IsPlaying)
	require.NotNil(t, snap.Playlist)
	assert.Equal(t, 2, snap.Playlist.CurrentIndex)
	assert.False(t, snap.Playlist.HasNext)
	assert.Equal(t, 1, h.prim.Count("load"))
}

func TestEndedAdvancesPlaylist(t *testing.T) {
	h := newHarness(t, playlistOptions(0))

	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 30})
	h.emit(t, media.Event{Type: media.EventEnded})

	snap := h.snapshot(t)
	assert.Equal(t, 1, snap.Playlist.CurrentIndex)
	assert.Equal(t, "B", snap.Title)
	assert.Equal(t, "https://cdn.example.com/b.mp4", snap.Playback.MediaURL)
	assert.Equal(t, player.StatusLoading, snap.Playback.Status)

	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 40})
	assert.Equal(t, player.StatusPlaying, h.state(t).Status)
}

func TestPlaylistIntents(t *testing.T) {
	h := newHarness(t, playlistOptions(0))

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentPlaylistNavigate, Index: 2}))
	assert.Equal(t, 2, h.snapshot(t).Playlist.CurrentIndex)

	err := h.dispatch(surface.Intent{Kind: surface.IntentPlaylistNavigate, Index: 3})
	assert.ErrorIs(t, err, playlist.ErrNavigationOutOfRange)
	assert.Equal(t, 2, h.snapshot(t).Playlist.CurrentIndex)

	loads := h.prim.Count("load")
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentPlaylistStep, Direction: 1}))
	assert.Equal(t, loads, h.prim.Count("load"))

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "["}))
	assert.Equal(t, 1, h.snapshot(t).Playlist.CurrentIndex)
	assert.Equal(t, loads+1, h.prim.Count("load"))
}

func TestRateStepsSaturate(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 60})

	for i := 0; i < 5; i++ {
		require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentStepRate, Direction: 1}))
	}
	assert.Equal(t, 2.0, h.state(t).PlaybackRate)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentStepRate, Direction: 1}))
	assert.Equal(t, 2.0, h.state(t).PlaybackRate)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentSetRate, Value: 9}))
	assert.Equal(t, 2.0, h.state(t).PlaybackRate)
}

func qualityOptions() Options {
	opts := basicOptions()
	opts.Autoplay = true
	opts.Qualities = []quality.Tier{
		{Name: "360p", Height: 360},
		{Name: "720p", Height: 720},
		{Name: "1080p", Height: 1080},
	}
	return opts
}

func TestQualityFollowsNetwork(t *testing.T) {
	h := newHarness(t, qualityOptions())

	assert.Equal(t, mediaURL+"?quality=360p", h.prim.Calls()[0].Arg)
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})
	h.emit(t, media.Event{Type: media.EventTimeChanged, Time: 30})

	h.host.HandleNetworkSample(quality.Sample{EffectiveType: "4g", DownlinkMbps: 6})
	h.sync(t)
	assert.Equal(t, 2, h.prim.Count("load"))
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})

	st := h.state(t)
	assert.Equal(t, "1080p", st.ActiveQuality)
	assert.Equal(t, 30.0, st.CurrentTime)
	assert.True(t, st.IsPlaying)

	h.host.HandleNetworkSample(quality.Sample{EffectiveType: "3g", DownlinkMbps: 1})
	h.sync(t)
	assert.Equal(t, 3, h.prim.Count("load"))
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})

	snap := h.snapshot(t)
	assert.Equal(t, "360p", snap.Playback.ActiveQuality)
	assert.Equal(t, 30.0, snap.Playback.CurrentTime)
	assert.Equal(t, 2, snap.Stats.QualityChanges)
	assert.Equal(t, 2, snap.Stats.BufferingEvents)
	assert.True(t, snap.Quality.Auto)
}

func TestQualityPinAndNetworkLoss(t *testing.T) {
	h := newHarness(t, qualityOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentSelectQuality, Quality: "720p"}))
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})
	assert.Equal(t, "720p", h.state(t).ActiveQuality)

	h.host.HandleNetworkSample(quality.Sample{EffectiveType: "4g", DownlinkMbps: 20})
	h.sync(t)
	assert.Equal(t, 2, h.prim.Count("load"))

	h.host.HandleCapabilities(capability.Set{})
	snap := h.snapshot(t)
	assert.False(t, snap.Quality.NetworkAvailable)
	assert.False(t, snap.Quality.Auto)

	assert.ErrorIs(t, h.dispatch(surface.Intent{Kind: surface.IntentSelectQuality, Quality: "8k"}), quality.ErrUnknownTier)
}

func TestQualitySwitchFailureWarns(t *testing.T) {
	h := newHarness(t, qualityOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})

	h.host.HandleNetworkSample(quality.Sample{EffectiveType: "4g", DownlinkMbps: 6})
	h.sync(t)
	h.emit(t, media.Event{Type: media.EventError, Err: media.NewError(media.CodeNetwork, "")})
	assert.Equal(t, 3, h.prim.Count("load"))
	assert.Empty(t, h.snapshot(t).Warnings)

	h.emit(t, media.Event{Type: media.EventError, Err: media.NewError(media.CodeNetwork, "")})

	snap := h.snapshot(t)
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, WarningQualitySwitchFailed, snap.Warnings[0].Code)
	assert.Equal(t, player.StatusErrored, snap.Playback.Status)
	require.NotNil(t, snap.ErrorPanel)
	assert.True(t, snap.ErrorPanel.Retryable)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentDismissWarnings}))
	assert.Empty(t, h.snapshot(t).Warnings)
}

func TestRetryLoadsTierChosenWhileErrored(t *testing.T) {
	h := newHarness(t, qualityOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})
	h.emit(t, media.Event{Type: media.EventTimeChanged, Time: 30})
	h.emit(t, media.Event{Type: media.EventError, Err: media.NewError(media.CodeNetwork, "")})

	h.host.HandleNetworkSample(quality.Sample{EffectiveType: "4g", DownlinkMbps: 6})
	h.sync(t)
	assert.Equal(t, 1, h.prim.Count("load"))

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentRetry}))
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 120})

	var loaded []any
	for _, c := range h.prim.Calls() {
		if c.Op == "load" {
			loaded = append(loaded, c.Arg)
		}
	}
	assert.Equal(t, []any{mediaURL + "?quality=360p", mediaURL + "?quality=1080p"}, loaded)

	snap := h.snapshot(t)
	assert.Equal(t, "1080p", snap.Quality.Active)
	assert.Equal(t, snap.Quality.Active, snap.Playback.ActiveQuality)
	assert.Equal(t, 30.0, snap.Playback.CurrentTime)
}

func TestSeekClamps(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentSeek, Time: -5}))
	assert.Equal(t, 0.0, h.state(t).CurrentTime)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentSeek, Time: 500}))
	assert.Equal(t, 100.0, h.state(t).CurrentTime)
}

func TestPreviewLastRequestWins(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	h.aux.IgnoreCancel = true
	openA := h.aux.Gate(10)
	defer openA()

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentHover, Time: 10}))
	require.Eventually(t, func() bool { return len(h.aux.Seeks()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentHover, Time: 40}))
	openA()

	require.Eventually(t, func() bool {
		return h.latest().Preview != nil
	}, time.Second, 5*time.Millisecond)

	snap := h.snapshot(t)
	assert.Equal(t, 40.0, snap.Preview.Time)
	assert.Equal(t, "image/jpeg", snap.Preview.ContentType)
	assert.Equal(t, []string{mediaURL}, unique(h.aux.Sources()))

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentHoverEnd}))
	assert.Nil(t, h.snapshot(t).Preview)
}

func TestPreviewStaleResultCannotReplaceCachedAnswer(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	showPreview := func(at float64) {
		t.Helper()
		require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentHover, Time: at}))
		require.Eventually(t, func() bool {
			p := h.latest().Preview
			return p != nil && p.Time == at
		}, time.Second, 5*time.Millisecond)
	}
	showPreview(40)
	showPreview(70)

	h.aux.IgnoreCancel = true
	openA := h.aux.Gate(10)
	defer openA()
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentHover, Time: 10}))
	require.Eventually(t, func() bool { return len(h.aux.Seeks()) == 3 }, time.Second, time.Millisecond)

	// The cached answer for 40 is queued, then a late result for 10 arrives before
	// the loop picks either up.
	require.NoError(t, h.s.Do(context.Background(), func() {
		assert.NoError(t, h.s.hover(surface.Intent{Kind: surface.IntentHover, Time: 40}))
		assert.Nil(t, h.s.shown)

		h.s.previewMu.Lock()
		cached := *h.s.previewNext
		h.s.previewMu.Unlock()

		h.s.offerPreview(preview.Result{RequestedTime: 10, Seq: cached.Seq - 1})
	}))

	snap := h.snapshot(t)
	require.NotNil(t, snap.Preview)
	assert.Equal(t, 40.0, snap.Preview.Time)

	openA()
	h.sync(t)
	assert.Equal(t, 40.0, h.snapshot(t).Preview.Time)
}

func unique(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func TestMiniPlayerNeverReloads(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	calls := len(h.prim.Calls())
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentMiniPlayer, Enabled: true}))
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentMiniPlayer, Enabled: false}))
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentMiniPlayer, Enabled: true}))

	assert.Len(t, h.prim.Calls(), calls)
	assert.True(t, h.snapshot(t).Chrome.MiniPlayer)
}

func TestRecoverableErrorRetries(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})
	h.emit(t, media.Event{Type: media.EventTimeChanged, Time: 42})
	h.emit(t, media.Event{Type: media.EventError, Err: media.NewError(media.CodeNetwork, "reset")})

	snap := h.snapshot(t)
	require.NotNil(t, snap.ErrorPanel)
	assert.Equal(t, media.CodeNetwork, snap.ErrorPanel.Code)
	assert.True(t, snap.ErrorPanel.Retryable)
	assert.Equal(t, surface.FallbackBack, snap.ErrorPanel.Fallback)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentRetry}))
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	snap = h.snapshot(t)
	assert.Nil(t, snap.ErrorPanel)
	assert.Equal(t, 42.0, snap.Playback.CurrentTime)
	assert.Equal(t, player.StatusPlaying, snap.Playback.Status)
}

func TestFatalErrorIsNotRetryable(t *testing.T) {
	h := newHarness(t, playlistOptions(0))
	h.emit(t, media.Event{Type: media.EventError, Err: media.NewError(media.CodeFormatUnsupported, "")})

	snap := h.snapshot(t)
	require.NotNil(t, snap.ErrorPanel)
	assert.False(t, snap.ErrorPanel.Retryable)
	assert.Equal(t, surface.FallbackNext, snap.ErrorPanel.Fallback)

	assert.ErrorIs(t, h.dispatch(surface.Intent{Kind: surface.IntentRetry}), player.ErrNotRetryable)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentFallback}))
	snap = h.snapshot(t)
	assert.Equal(t, 1, snap.Playlist.CurrentIndex)
	assert.Nil(t, snap.ErrorPanel)
}

func TestFallbackBackEndsSession(t *testing.T) {
	h := newHarness(t, basicOptions())

	assert.ErrorIs(t, h.dispatch(surface.Intent{Kind: surface.IntentFallback}), ErrNoFallback)

	h.emit(t, media.Event{Type: media.EventError, Err: media.NewError(media.CodeDecode, "")})
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentFallback}))

	select {
	case <-h.s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not end")
	}
}

func TestKeyboardIntents(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "k", TextInputFocused: true}))
	assert.False(t, h.state(t).IsPlaying)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "K"}))
	assert.True(t, h.state(t).IsPlaying)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "ArrowRight"}))
	assert.Equal(t, 10.0, h.state(t).CurrentTime)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "m"}))
	assert.True(t, h.state(t).Muted)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "?"}))
	assert.True(t, h.snapshot(t).Chrome.HelpOpen)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentKey, Key: "Escape"}))
	assert.False(t, h.snapshot(t).Chrome.HelpOpen)
}

func TestGestures(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentSeek, Time: 50}))

	start := time.Now()
	viewport := surface.Intent{ViewportWidth: 1000, ViewportHeight: 500}

	in := viewport
	in.Kind, in.X, in.Y, in.At = surface.IntentGestureStart, 100, 100, start
	require.NoError(t, h.dispatch(in))

	in.Kind, in.X = surface.IntentGestureMove, 600
	require.NoError(t, h.dispatch(in))
	assert.Equal(t, 75.0, h.state(t).CurrentTime)

	in.Kind, in.At = surface.IntentGestureEnd, start.Add(time.Second)
	require.NoError(t, h.dispatch(in))
	assert.False(t, h.state(t).IsPlaying)

	in.Kind, in.X, in.At = surface.IntentGestureStart, 100, start
	require.NoError(t, h.dispatch(in))
	in.Kind, in.At = surface.IntentGestureEnd, start.Add(100*time.Millisecond)
	require.NoError(t, h.dispatch(in))
	assert.True(t, h.state(t).IsPlaying)

	in.Kind = surface.IntentGestureMove
	assert.Error(t, h.dispatch(in))
}

func TestChromeAutoHide(t *testing.T) {
	opts := basicOptions()
	opts.Autoplay = true
	h := newHarness(t, opts)
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	h.tick(t, 2*time.Second)
	assert.True(t, h.snapshot(t).Chrome.Visible)

	h.tick(t, time.Second)
	assert.False(t, h.snapshot(t).Chrome.Visible)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentActivity}))
	assert.True(t, h.snapshot(t).Chrome.Visible)

	h.tick(t, 3*time.Second)
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentPause}))
	assert.True(t, h.snapshot(t).Chrome.Visible)

	h.tick(t, 10*time.Second)
	assert.True(t, h.snapshot(t).Chrome.Visible)
}

func TestWatchTimeOnlyWhilePlaying(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})

	h.tick(t, 3*time.Second)
	assert.Zero(t, h.snapshot(t).Stats.WatchTimeSeconds)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentPlay}))
	h.tick(t, 2*time.Second)
	assert.Equal(t, int64(2), h.snapshot(t).Stats.WatchTimeSeconds)

	h.emit(t, media.Event{Type: media.EventBufferingStart})
	h.tick(t, 2*time.Second)
	h.emit(t, media.Event{Type: media.EventBufferingEnd})

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentPause}))
	h.tick(t, 5*time.Second)

	stats := h.snapshot(t).Stats
	assert.Equal(t, int64(2), stats.WatchTimeSeconds)
	assert.Equal(t, 1, stats.BufferingEvents)
	assert.Equal(t, 1.0, stats.AveragePlaybackSpeed)
}

func TestCapabilityRequests(t *testing.T) {
	h := newHarness(t, basicOptions())

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentFullscreen, Enabled: true}))
	require.Eventually(t, func() bool {
		return h.latest().Chrome.Fullscreen
	}, time.Second, 5*time.Millisecond)

	h.host.HandleFullscreenChanged(remote.FullscreenChanged{Fullscreen: false, PictureInPicture: true})
	chrome := h.snapshot(t).Chrome
	assert.False(t, chrome.Fullscreen)
	assert.True(t, chrome.PictureInPicture)

	h.platform.SetCapabilities(capability.Set{})
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentFullscreen, Enabled: true}))
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentShare}))
	assert.Len(t, h.platform.Invocations(), 1)
}

func TestShareLinkCopied(t *testing.T) {
	h := newHarness(t, basicOptions())
	h.emit(t, media.Event{Type: media.EventMetadataReady, Duration: 100})
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentSeek, Time: 42.7}))

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentShare}))
	require.Eventually(t, func() bool { return len(h.platform.Invocations()) == 1 }, time.Second, time.Millisecond)

	inv := h.platform.Invocations()[0]
	assert.Equal(t, capability.Clipboard, inv.Kind)
	assert.Equal(t, mediaURL+"#t=42", inv.Data)
}

func TestShareLink(t *testing.T) {
	assert.Equal(t, "https://x.test/v.mp4#t=0", ShareLink("https://x.test/v.mp4", -3))
	assert.Equal(t, "https://x.test/v.mp4#t=9", ShareLink("https://x.test/v.mp4#t=3", 9.99))
}

func TestLibraryToggles(t *testing.T) {
	h := newHarness(t, basicOptions())

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentToggleBookmark}))
	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentToggleWatchLater}))
	assert.Equal(t, surface.Library{Bookmarked: true, WatchLater: true}, h.snapshot(t).Library)

	require.NoError(t, h.dispatch(surface.Intent{Kind: surface.IntentToggleBookmark}))
	assert.Equal(t, surface.Library{WatchLater: true}, h.snapshot(t).Library)
}

func TestMountedSurfacesInSnapshot(t *testing.T) {
	h := newHarness(t, basicOptions())

	before := h.snapshot(t).Version

	sub, err := h.s.Mount(surface.ChapterBar)
	require.NoError(t, err)
	h.sync(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snap, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Greater(t, snap.Version, before)
	assert.Equal(t, []surface.Kind{surface.ChapterBar}, snap.Surfaces)

	h.s.Unmount(sub.ID)
	assert.Empty(t, h.snapshot(t).Surfaces)
}

func TestUnknownIntent(t *testing.T) {
	h := newHarness(t, basicOptions())
	assert.ErrorIs(t, h.dispatch(surface.Intent{Kind: "teleport"}), surface.ErrUnknownIntent)
}

func TestCloseDetachesEverything(t *testing.T) {
	h := newHarness(t, basicOptions())
	require.NotZero(t, h.prim.Listeners())
	require.NotZero(t, h.host.Listeners())

	sub, err := h.s.Mount(surface.MainControls)
	require.NoError(t, err)

	h.s.Close()

	assert.Zero(t, h.prim.Listeners())
	assert.Zero(t, h.host.Listeners())
	assert.ErrorIs(t, h.dispatch(surface.Intent{Kind: surface.IntentPlay}), ErrClosed)

	_, err = sub.Next(context.Background())
	for err == nil {
		_, err = sub.Next(context.Background())
	}
	assert.ErrorIs(t, err, surface.ErrClosed)
}

func TestCloseWithoutStart(t *testing.T) {
	prim := testutil.NewPrimitive()
	s, err := New("s-2", basicOptions(), Config{}, Deps{Primitive: prim}, discard)
	require.NoError(t, err)

	s.Close()
	assert.Zero(t, prim.Listeners())
	assert.Empty(t, prim.Calls())
}

func TestNewRejectsBadChapters(t *testing.T) {
	opts := basicOptions()
	opts.Chapters = []chapter.Chapter{{ID: "b", StartTime: 10}, {ID: "a", StartTime: 5}}

	_, err := New("s-3", opts, Config{}, Deps{Primitive: testutil.NewPrimitive()}, discard)
	assert.ErrorIs(t, err, chapter.ErrUnordered)
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New("s-4", Options{}, Config{}, Deps{Primitive: testutil.NewPrimitive()}, discard)
	assert.ErrorIs(t, err, ErrNoSource)
}
