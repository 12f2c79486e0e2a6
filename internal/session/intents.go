package session

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/gesture"
	"github.com/val-x/Val-X-Site-sub002/internal/keyboard"
	"github.com/val-x/Val-X-Site-sub002/internal/metrics"
	"github.com/val-x/Val-X-Site-sub002/internal/service/library"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
	"github.com/val-x/Val-X-Site-sub002/pkg/clamp"
)

// Dispatch routes a surface intent on the loop and returns the handler's error.
func (s *Session) Dispatch(ctx context.Context, in surface.Intent) error {
	if in.At.IsZero() {
		in.At = s.now()
	}
	s.touch()

	var err error
	if derr := s.Do(ctx, func() {
		err = s.hub.Route(in)
		s.dirty = true
	}); derr != nil {
		return derr
	}

	kind, result := string(in.Kind), "ok"
	switch {
	case errors.Is(err, surface.ErrUnknownIntent):
		kind, result = "unknown", "error"
	case err != nil:
		result = "error"
	}
	metrics.Intents.WithLabelValues(kind, result).Inc()

	return err
}

func ignoreValue(_ float64, err error) error {
	return err
}

func (s *Session) routes() {
	h := s.hub

	h.Handle(surface.IntentPlay, func(surface.Intent) error { return s.ctrl.Play() })
	h.Handle(surface.IntentPause, func(surface.Intent) error { return s.ctrl.Pause() })
	h.Handle(surface.IntentTogglePlay, func(surface.Intent) error { return s.ctrl.TogglePlay() })
	h.Handle(surface.IntentSeek, func(in surface.Intent) error { return ignoreValue(s.ctrl.Seek(in.Time)) })
	h.Handle(surface.IntentSeekBy, func(in surface.Intent) error { return ignoreValue(s.ctrl.SeekBy(in.Delta)) })
	h.Handle(surface.IntentSetRate, func(in surface.Intent) error { return ignoreValue(s.ctrl.SetRate(in.Value)) })
	h.Handle(surface.IntentStepRate, func(in surface.Intent) error { return ignoreValue(s.ctrl.StepRate(in.Direction)) })
	h.Handle(surface.IntentSetVolume, func(in surface.Intent) error { return ignoreValue(s.ctrl.SetVolume(in.Value)) })
	h.Handle(surface.IntentChangeVolume, func(in surface.Intent) error { return ignoreValue(s.ctrl.ChangeVolume(in.Delta)) })
	h.Handle(surface.IntentToggleMute, func(surface.Intent) error { return s.ctrl.ToggleMute() })

	h.Handle(surface.IntentSelectQuality, func(in surface.Intent) error { return s.quality.Choose(in.Quality) })

	h.Handle(surface.IntentPlaylistNavigate, func(in surface.Intent) error { return s.navigate(in.Index) })
	h.Handle(surface.IntentPlaylistStep, func(in surface.Intent) error { return s.stepPlaylist(in.Direction) })
	h.Handle(surface.IntentChapterSelect, func(in surface.Intent) error { return s.selectChapter(in.ChapterID) })
	h.Handle(surface.IntentChapterStep, func(in surface.Intent) error { return s.stepChapter(in.Direction) })

	h.Handle(surface.IntentKey, s.key)
	h.Handle(surface.IntentGestureStart, s.gestureStart)
	h.Handle(surface.IntentGestureMove, s.gestureMove)
	h.Handle(surface.IntentGestureEnd, s.gestureEnd)
	h.Handle(surface.IntentGestureCancel, func(surface.Intent) error {
		s.gestures.Cancel()
		return nil
	})

	h.Handle(surface.IntentHover, s.hover)
	h.Handle(surface.IntentHoverEnd, func(surface.Intent) error {
		if s.preview != nil {
			s.preview.Cancel()
		}
		s.shown = nil
		return nil
	})
	h.Handle(surface.IntentActivity, func(surface.Intent) error {
		s.activity()
		return nil
	})

	h.Handle(surface.IntentMiniPlayer, func(in surface.Intent) error {
		s.chrome.MiniPlayer = in.Enabled
		return nil
	})
	h.Handle(surface.IntentFullscreen, func(in surface.Intent) error {
		s.setCapability(capability.Fullscreen, in.Enabled)
		return nil
	})
	h.Handle(surface.IntentPictureInPicture, func(in surface.Intent) error {
		s.setCapability(capability.PictureInPicture, in.Enabled)
		return nil
	})
	h.Handle(surface.IntentSettings, func(in surface.Intent) error {
		s.chrome.SettingsOpen = in.Enabled
		return nil
	})
	h.Handle(surface.IntentDrawer, func(in surface.Intent) error {
		s.chrome.DrawerOpen = in.Enabled
		return nil
	})
	h.Handle(surface.IntentHelp, func(in surface.Intent) error {
		s.chrome.HelpOpen = in.Enabled
		return nil
	})

	h.Handle(surface.IntentRetry, func(surface.Intent) error { return s.retry() })
	h.Handle(surface.IntentFallback, func(surface.Intent) error { return s.fallback() })

	h.Handle(surface.IntentToggleBookmark, func(surface.Intent) error { return s.toggleLibrary(library.Bookmarks) })
	h.Handle(surface.IntentToggleWatchLater, func(surface.Intent) error { return s.toggleLibrary(library.WatchLater) })
	h.Handle(surface.IntentShare, func(surface.Intent) error {
		s.share()
		return nil
	})
	h.Handle(surface.IntentDismissWarnings, func(surface.Intent) error {
		s.warnings = nil
		return nil
	})
}

func (s *Session) activity() {
	s.visibility.Activity()
	s.chrome.Visible = s.visibility.Visible()
}

func (s *Session) navigate(index int) error {
	if s.playlist == nil {
		return ErrNoPlaylist
	}

	if err := s.playlist.Navigate(index); err != nil {
		s.log.Error("playlist navigation rejected", "index", index, "error", err)
		return err
	}

	return s.load(0, true)
}

func (s *Session) stepPlaylist(dir int) error {
	if s.playlist == nil {
		return ErrNoPlaylist
	}

	var moved bool
	switch {
	case dir > 0:
		moved = s.playlist.Next()
	case dir < 0:
		moved = s.playlist.Previous()
	}
	if !moved {
		return nil
	}

	return s.load(0, true)
}

func (s *Session) selectChapter(id string) error {
	c, ok := s.chapters.ByID(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChapter, id)
	}

	return ignoreValue(s.ctrl.Seek(c.StartTime))
}

func (s *Session) stepChapter(dir int) error {
	t := s.ctrl.State().CurrentTime

	c, ok := s.chapters.Next(t)
	if dir < 0 {
		c, ok = s.chapters.Previous(t, s.cfg.ChapterGrace)
	}
	if !ok {
		return nil
	}

	return ignoreValue(s.ctrl.Seek(c.StartTime))
}

func (s *Session) key(in surface.Intent) error {
	action, ok := keyboard.Lookup(in.Key, in.TextInputFocused)
	if !ok {
		return nil
	}
	s.activity()

	switch action.Kind {
	case keyboard.TogglePlay:
		return s.ctrl.TogglePlay()
	case keyboard.ToggleFullscreen:
		s.setCapability(capability.Fullscreen, !s.chrome.Fullscreen)
	case keyboard.ToggleMute:
		return s.ctrl.ToggleMute()
	case keyboard.SeekBy:
		return ignoreValue(s.ctrl.SeekBy(action.Amount))
	case keyboard.ChangeVolume:
		return ignoreValue(s.ctrl.ChangeVolume(action.Amount))
	case keyboard.TogglePiP:
		s.setCapability(capability.PictureInPicture, !s.chrome.PictureInPicture)
	case keyboard.StepRate:
		return ignoreValue(s.ctrl.StepRate(int(action.Amount)))
	case keyboard.PlaylistStep:
		if s.playlist == nil {
			return nil
		}
		return s.stepPlaylist(int(action.Amount))
	case keyboard.Escape:
		s.escape()
	case keyboard.ShowHelp:
		s.chrome.HelpOpen = !s.chrome.HelpOpen
	}

	return nil
}

// escape closes the topmost overlay, then leaves fullscreen, then PiP.
func (s *Session) escape() {
	switch {
	case s.chrome.HelpOpen || s.chrome.SettingsOpen || s.chrome.DrawerOpen:
		s.chrome.HelpOpen = false
		s.chrome.SettingsOpen = false
		s.chrome.DrawerOpen = false
	case s.chrome.Fullscreen:
		s.setCapability(capability.Fullscreen, false)
	case s.chrome.PictureInPicture:
		s.setCapability(capability.PictureInPicture, false)
	}
}

func (s *Session) gestureStart(in surface.Intent) error {
	st := s.ctrl.State()
	s.gestures.Start(in.X, in.Y, in.At,
		gesture.Viewport{Width: in.ViewportWidth, Height: in.ViewportHeight},
		gesture.Baseline{Time: st.CurrentTime, Volume: st.Volume, Duration: st.Duration},
	)
	s.activity()

	return nil
}

func (s *Session) gestureMove(in surface.Intent) error {
	r, err := s.gestures.Move(in.X, in.Y)
	if err != nil {
		return err
	}

	return s.applyGesture(r)
}

func (s *Session) gestureEnd(in surface.Intent) error {
	r, err := s.gestures.End(in.At)
	if err != nil {
		return err
	}

	return s.applyGesture(r)
}

func (s *Session) applyGesture(r gesture.Result) error {
	switch r.Kind {
	case gesture.KindSeek:
		return ignoreValue(s.ctrl.Seek(r.Target))
	case gesture.KindVolume:
		return ignoreValue(s.ctrl.SetVolume(r.Target))
	case gesture.KindTap:
		return s.ctrl.TogglePlay()
	}

	return nil
}

func (s *Session) hover(in surface.Intent) error {
	if s.preview == nil {
		return ErrPreviewUnavailable
	}
	s.activity()

	t := in.Time
	if d := s.ctrl.State().Duration; d > 0 {
		t = clamp.Value(t, 0, d)
	}

	if err := s.preview.Request(math.Max(t, 0)); err != nil {
		return err
	}

	// The previous frame no longer answers the pointer position.
	if s.shown != nil {
		s.shown = nil
		s.dirty = true
	}

	return nil
}

// setCapability runs the platform request off the loop.
func (s *Session) setCapability(kind capability.Kind, enable bool) {
	s.spawn(func(ctx context.Context) {
		var err error
		if enable {
			err = s.caps.Request(ctx, kind)
		} else {
			err = s.caps.Exit(ctx, kind)
		}

		s.post(func() { s.capabilityResolved(kind, enable, err) })
	})
}

func (s *Session) capabilityResolved(kind capability.Kind, enable bool, err error) {
	if err != nil {
		s.log.Debug("capability request not applied", "capability", kind, "enable", enable, "error", err)
		return
	}

	switch kind {
	case capability.Fullscreen:
		s.chrome.Fullscreen = enable
	case capability.PictureInPicture:
		s.chrome.PictureInPicture = enable
	}
	s.dirty = true
}

func (s *Session) share() {
	link := ShareLink(s.baseURL(), s.ctrl.State().CurrentTime)

	s.spawn(func(ctx context.Context) {
		if err := s.caps.WriteClipboard(ctx, link); err != nil {
			s.log.Debug("share link not copied", "error", err)
		}
	})
}

func (s *Session) toggleLibrary(list library.List) error {
	if s.library == nil {
		return ErrLibraryUnavailable
	}

	st := s.ctrl.State()
	on, err := s.library.Toggle(s.ctx, list, library.Entry{
		MediaID:       s.mediaID(),
		Title:         s.title(),
		SavedPosition: st.CurrentTime,
		Duration:      st.Duration,
	})
	if err != nil {
		return fmt.Errorf("failed to toggle %s: %w", list, err)
	}

	switch list {
	case library.Bookmarks:
		s.flags.Bookmarked = on
	case library.WatchLater:
		s.flags.WatchLater = on
	}

	return nil
}

// fallback leaves an errored media: the next playlist entry when there is one,
// otherwise the session ends.
func (s *Session) fallback() error {
	if s.errorPanel == nil {
		return ErrNoFallback
	}

	if s.errorPanel.Fallback == surface.FallbackNext && s.playlist != nil && s.playlist.Next() {
		return s.load(0, true)
	}

	s.log.Info("leaving errored media")
	s.stop()
	return nil
}
