package player

import (
	"fmt"
	"log/slog"

	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/pkg/clamp"
)

type Cause string

const (
	CauseCommand        Cause = "command"
	CauseLoad           Cause = "load"
	CauseMetadata       Cause = "metadata"
	CauseTime           Cause = "time"
	CauseBufferingStart Cause = "buffering_start"
	CauseBufferingEnd   Cause = "buffering_end"
	CauseEnded          Cause = "ended"
	CauseError          Cause = "error"
	CauseReloadStart    Cause = "reload_start"
	CauseReloadReady    Cause = "reload_ready"
	CauseReloadFailed   Cause = "reload_failed"
)

// Transition is delivered to observers after every committed state change.
type Transition struct {
	Prev  State
	Next  State
	Cause Cause
	Err   *media.Error
}

type Observer func(Transition)

type Source struct {
	URL      string  `json:"url"`
	StartAt  float64 `json:"start_at"`
	Autoplay bool    `json:"autoplay"`
	Quality  string  `json:"quality"`
}

// Resume is the position captured before a reload.
type Resume struct {
	Time       float64
	WasPlaying bool
}

// Advancer supplies the next source once the current one ends.
type Advancer interface {
	Advance() (Source, bool)
}

type pendingStart struct {
	at   float64
	play bool
}

// Controller owns the canonical playback state. It is not safe for concurrent use:
// every call happens on the session loop.
type Controller struct {
	prim     media.Primitive
	log      *slog.Logger
	advancer Advancer

	state   State
	pending pendingStart
	reload  *Resume

	observers []Observer
	queue     []Transition
	draining  bool

	handlers map[media.EventType]func(media.Event)
}

func NewController(prim media.Primitive, log *slog.Logger) *Controller {
	c := &Controller{
		prim: prim,
		log:  log,
		state: State{
			Status:       StatusIdle,
			PlaybackRate: DefaultRate,
			Volume:       1,
		},
	}

	c.handlers = map[media.EventType]func(media.Event){
		media.EventMetadataReady:  c.onMetadata,
		media.EventTimeChanged:    c.onTime,
		media.EventBufferingStart: c.onBufferingStart,
		media.EventBufferingEnd:   c.onBufferingEnd,
		media.EventEnded:          c.onEnded,
		media.EventError:          c.onError,
	}

	return c
}

func (c *Controller) SetAdvancer(a Advancer) {
	c.advancer = a
}

func (c *Controller) Observe(o Observer) {
	c.observers = append(c.observers, o)
}

func (c *Controller) State() State {
	return c.state
}

// Reloading reports whether a quality reload is outstanding.
func (c *Controller) Reloading() bool {
	return c.reload != nil
}

// commit applies mutate and notifies observers if anything changed. Transitions
// raised by observers are queued and delivered after the current one.
func (c *Controller) commit(cause Cause, err *media.Error, mutate func(*State)) {
	prev := c.state
	next := prev
	mutate(&next)

	next.Version = prev.Version
	if next == prev && err == nil {
		return
	}

	next.Version++
	c.state = next
	c.queue = append(c.queue, Transition{Prev: prev, Next: next, Cause: cause, Err: err})

	if c.draining {
		return
	}

	c.draining = true
	defer func() { c.draining = false }()

	for len(c.queue) > 0 {
		t := c.queue[0]
		c.queue = c.queue[1:]
		for _, o := range c.observers {
			o(t)
		}
	}
}

// HandleEvent routes a primitive event through the transition table.
func (c *Controller) HandleEvent(ev media.Event) {
	h, ok := c.handlers[ev.Type]
	if !ok {
		c.log.Warn("unknown media event", "type", ev.Type)
		return
	}

	h(ev)
}

func (c *Controller) Load(src Source) error {
	if src.URL == "" {
		return ErrEmptySource
	}

	if err := c.prim.Load(src.URL); err != nil {
		return fmt.Errorf("failed to load media: %w", err)
	}

	c.reload = nil
	c.pending = pendingStart{at: src.StartAt, play: src.Autoplay}
	c.commit(CauseLoad, nil, func(s *State) {
		s.Status = StatusLoading
		s.MediaURL = src.URL
		s.CurrentTime = 0
		s.Duration = 0
		s.IsPlaying = false
		s.IsBuffering = false
		s.Error = nil
		if src.Quality != "" {
			s.ActiveQuality = src.Quality
		}
	})

	return nil
}

// Reload swaps the source for another rendition of the same content and resumes at
// the captured position once the new source is ready. A reload that replaces a
// failed one resumes where the failed one would have, including any play, pause or
// seek issued while it was loading.
func (c *Controller) Reload(url, quality string) (Resume, error) {
	if c.state.Status == StatusIdle {
		return Resume{}, ErrNotLoaded
	}

	resume := Resume{Time: c.state.CurrentTime, WasPlaying: c.state.IsPlaying}
	if c.reload != nil {
		resume = Resume{Time: c.pending.at, WasPlaying: c.pending.play}
	}

	if err := c.prim.Load(url); err != nil {
		return Resume{}, fmt.Errorf("failed to reload media: %w", err)
	}

	c.reload = &resume
	c.pending = pendingStart{at: resume.Time, play: resume.WasPlaying}
	c.commit(CauseReloadStart, nil, func(s *State) {
		s.Status = StatusLoading
		s.MediaURL = url
		s.ActiveQuality = quality
		s.IsPlaying = false
		s.IsBuffering = false
		s.Error = nil
	})

	return resume, nil
}

// Fail moves the controller into the errored state.
func (c *Controller) Fail(err *media.Error) {
	c.reload = nil
	c.pending = pendingStart{}
	c.commit(CauseError, err, func(s *State) {
		s.Status = StatusErrored
		s.IsPlaying = false
		s.IsBuffering = false
		s.Error = err
	})
}

// Retry reloads the current source at the last known position.
func (c *Controller) Retry() error {
	return c.RetryFrom(c.state.MediaURL, c.state.ActiveQuality)
}

// RetryFrom recovers from a recoverable error by loading url, which may be another
// rendition than the one that failed, at the last known position.
func (c *Controller) RetryFrom(url, quality string) error {
	s := c.state
	if s.Status != StatusErrored || s.Error == nil || !s.Error.Recoverable() {
		return ErrNotRetryable
	}

	return c.Load(Source{
		URL:      url,
		StartAt:  s.CurrentTime,
		Autoplay: true,
		Quality:  quality,
	})
}

func (c *Controller) Play() error {
	switch c.state.Status {
	case StatusIdle:
		return ErrNotLoaded
	case StatusErrored:
		return ErrNotReady
	case StatusLoading:
		c.pending.play = true
		return nil
	case StatusEnded:
		if err := c.prim.Seek(0); err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
	}

	if err := c.prim.Play(); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	c.commit(CauseCommand, nil, func(s *State) {
		if s.Status == StatusEnded {
			s.CurrentTime = 0
		}
		s.IsPlaying = true
		s.Status = StatusPlaying
		if s.IsBuffering {
			s.Status = StatusBuffering
		}
	})

	return nil
}

func (c *Controller) Pause() error {
	switch c.state.Status {
	case StatusIdle:
		return ErrNotLoaded
	case StatusLoading:
		c.pending.play = false
		return nil
	case StatusErrored, StatusEnded:
		return nil
	}

	if err := c.prim.Pause(); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	c.commit(CauseCommand, nil, func(s *State) {
		s.IsPlaying = false
		s.Status = StatusPaused
	})

	return nil
}

func (c *Controller) TogglePlay() error {
	if c.state.IsPlaying || (c.state.Status == StatusLoading && c.pending.play) {
		return c.Pause()
	}

	return c.Play()
}

// Seek moves playback to t clamped to [0, duration] and returns the applied time.
func (c *Controller) Seek(t float64) (float64, error) {
	if c.state.Status == StatusLoading {
		c.pending.at = nonNegative(t)
		return c.pending.at, nil
	}
	if !c.state.loaded() {
		return 0, ErrNotReady
	}

	target := c.state.clampTime(t)
	if err := c.prim.Seek(target); err != nil {
		return 0, fmt.Errorf("failed to seek: %w", err)
	}

	c.commit(CauseCommand, nil, func(s *State) {
		s.CurrentTime = target
		if s.Status == StatusEnded && target < s.Duration {
			s.Status = StatusPaused
		}
	})

	return target, nil
}

func (c *Controller) SeekBy(delta float64) (float64, error) {
	return c.Seek(c.state.CurrentTime + delta)
}

// SetRate applies the accepted rate nearest to r.
func (c *Controller) SetRate(r float64) (float64, error) {
	rate := SnapRate(r)
	if err := c.prim.SetRate(rate); err != nil {
		return 0, fmt.Errorf("failed to set playback rate: %w", err)
	}

	c.commit(CauseCommand, nil, func(s *State) {
		s.PlaybackRate = rate
	})

	return rate, nil
}

// StepRate moves dir steps through the rate set, saturating at both ends.
func (c *Controller) StepRate(dir int) (float64, error) {
	i := clamp.Value(rateIndex(c.state.PlaybackRate)+dir, 0, len(Rates)-1)
	return c.SetRate(Rates[i])
}

func (c *Controller) SetVolume(v float64) (float64, error) {
	volume := clamp.Value(v, 0, 1)
	if err := c.prim.SetVolume(volume); err != nil {
		return 0, fmt.Errorf("failed to set volume: %w", err)
	}

	c.commit(CauseCommand, nil, func(s *State) {
		s.Volume = volume
	})

	return volume, nil
}

func (c *Controller) ChangeVolume(delta float64) (float64, error) {
	return c.SetVolume(c.state.Volume + delta)
}

func (c *Controller) SetMuted(muted bool) error {
	if err := c.prim.SetMuted(muted); err != nil {
		return fmt.Errorf("failed to set muted: %w", err)
	}

	c.commit(CauseCommand, nil, func(s *State) {
		s.Muted = muted
	})

	return nil
}

func (c *Controller) ToggleMute() error {
	return c.SetMuted(!c.state.Muted)
}

func (c *Controller) onMetadata(ev media.Event) {
	if c.state.Status != StatusLoading {
		c.log.Debug("metadata outside of loading", "status", c.state.Status)
		c.commit(CauseMetadata, nil, func(s *State) {
			s.Duration = ev.Duration
			if s.Duration > 0 {
				s.CurrentTime = s.clampTime(s.CurrentTime)
			}
		})
		return
	}

	duration := ev.Duration
	start := clamp.Value(c.pending.at, 0, duration)
	play := c.pending.play
	c.pending = pendingStart{}

	if start > 0 {
		if err := c.prim.Seek(start); err != nil {
			c.log.Warn("failed to seek to start position", "error", err)
			start = 0
		}
	}
	if play {
		if err := c.prim.Play(); err != nil {
			c.log.Warn("failed to start playback", "error", err)
			play = false
		}
	}

	cause := CauseMetadata
	reloaded := c.reload != nil
	if reloaded {
		cause = CauseReloadReady
		c.reload = nil
	}

	c.commit(cause, nil, func(s *State) {
		s.Duration = duration
		s.CurrentTime = start
		s.IsPlaying = play
		switch {
		case play:
			s.Status = StatusPlaying
		case reloaded:
			s.Status = StatusPaused
		default:
			s.Status = StatusReady
		}
	})
}

func (c *Controller) onTime(ev media.Event) {
	if !c.state.loaded() {
		return
	}

	t := ev.Time
	if c.state.Duration > 0 {
		t = c.state.clampTime(t)
	} else {
		t = nonNegative(t)
	}

	c.commit(CauseTime, nil, func(s *State) {
		s.CurrentTime = t
	})
}

func (c *Controller) onBufferingStart(media.Event) {
	if !c.state.loaded() || c.state.Status == StatusEnded {
		return
	}

	c.commit(CauseBufferingStart, nil, func(s *State) {
		s.IsBuffering = true
		if s.Status == StatusPlaying {
			s.Status = StatusBuffering
		}
	})
}

func (c *Controller) onBufferingEnd(media.Event) {
	if !c.state.IsBuffering {
		return
	}

	c.commit(CauseBufferingEnd, nil, func(s *State) {
		s.IsBuffering = false
		if s.Status == StatusBuffering {
			s.Status = StatusPlaying
		}
	})
}

func (c *Controller) onEnded(media.Event) {
	if !c.state.loaded() {
		return
	}

	c.commit(CauseEnded, nil, func(s *State) {
		s.Status = StatusEnded
		s.IsPlaying = false
		s.IsBuffering = false
		if s.Duration > 0 {
			s.CurrentTime = s.Duration
		}
	})

	if c.advancer == nil {
		return
	}

	src, ok := c.advancer.Advance()
	if !ok {
		return
	}

	src.Autoplay = true
	if err := c.Load(src); err != nil {
		c.log.Error("failed to advance playlist", "error", err)
	}
}

func (c *Controller) onError(ev media.Event) {
	err := ev.Err
	if err == nil {
		err = media.NewError(media.CodeDecode, "")
	}

	if c.reload != nil {
		c.log.Warn("reload failed", "error", err, "quality", c.state.ActiveQuality)
		c.commit(CauseReloadFailed, err, func(*State) {})
		return
	}

	c.log.Error("media error", "error", err)
	c.Fail(err)
}
