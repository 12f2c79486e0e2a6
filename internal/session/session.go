// Package session runs one playback lifecycle. Every component of a session is
// owned by a single event loop goroutine; collaborators post closures into it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/val-x/Val-X-Site-sub002/internal/analytics"
	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/chapter"
	"github.com/val-x/Val-X-Site-sub002/internal/gesture"
	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/internal/media/remote"
	"github.com/val-x/Val-X-Site-sub002/internal/metrics"
	"github.com/val-x/Val-X-Site-sub002/internal/player"
	"github.com/val-x/Val-X-Site-sub002/internal/playlist"
	"github.com/val-x/Val-X-Site-sub002/internal/preview"
	"github.com/val-x/Val-X-Site-sub002/internal/quality"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
	"github.com/val-x/Val-X-Site-sub002/internal/service/library"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
	"github.com/val-x/Val-X-Site-sub002/internal/visibility"
)

type NetworkFeed interface {
	SubscribeNetwork(func(remote.NetworkUpdate)) (unsubscribe func())
}

type ChromeFeed interface {
	SubscribeFullscreen(func(remote.FullscreenChanged)) (unsubscribe func())
}

// Deps are the collaborators of a session. Only Primitive is required.
type Deps struct {
	Primitive media.Primitive
	Platform  capability.Platform
	Network   NetworkFeed
	Chrome    ChromeFeed
	Auxiliary preview.Surface
	Store     kv.Store
}

type Session struct {
	ID string

	opts Options
	cfg  Config
	log  *slog.Logger
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	events    chan func()
	quit      chan struct{}
	stopped   chan struct{}
	quitOnce  sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup

	previewCh   chan struct{}
	previewMu   sync.Mutex
	previewNext *preview.Result

	lastActive atomic.Int64

	hub      *surface.Hub
	platform capability.Platform

	// Everything below belongs to the loop goroutine.
	ctrl       *player.Controller
	chapters   *chapter.Index
	playlist   *playlist.Navigator
	visibility *visibility.Timer
	stats      *analytics.Recorder
	gestures   *gesture.Interpreter
	quality    *quality.Adapter
	preview    *preview.Pipeline
	caps       *capability.Adapter
	library    *library.Service

	chrome     surface.Chrome
	active     *chapter.Active
	shown      *surface.Preview
	errorPanel *surface.ErrorPanel
	warnings   []surface.Warning
	flags      surface.Library
	version    uint64
	dirty      bool
	detach     []func()
}

// New wires a session. Listeners are attached immediately; nothing reaches the
// media primitive until Start.
func New(id string, opts Options, cfg Config, deps Deps, log *slog.Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	log = log.With("session_id", id)

	if opts.MediaURL == "" && len(opts.Playlist) == 0 {
		return nil, ErrNoSource
	}

	chapters, err := chapter.NewIndex(opts.Chapters, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to index chapters: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         id,
		opts:       opts,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan func(), cfg.QueueSize),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		previewCh:  make(chan struct{}, 1),
		hub:        surface.NewHub(log),
		platform:   deps.Platform,
		chapters:   chapters,
		visibility: visibility.NewTimer(cfg.HideDelay),
		stats:      analytics.NewRecorder(),
		gestures:   gesture.NewInterpreter(cfg.Gesture),
		caps:       capability.NewAdapter(deps.Platform, log),
		chrome:     surface.Chrome{Visible: true},
		dirty:      true,
	}
	s.touch()

	if len(opts.Playlist) > 0 {
		s.playlist, err = playlist.NewNavigator(opts.Playlist, opts.PlaylistIndex)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create playlist: %w", err)
		}
	}

	if deps.Store != nil {
		s.library = library.NewService(deps.Store, log)
	}

	if deps.Auxiliary != nil {
		s.preview, err = preview.New(deps.Auxiliary, cfg.Preview, s.offerPreview, log)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create preview pipeline: %w", err)
		}
	}

	defaultQuality := opts.DefaultQuality
	if defaultQuality == "" {
		defaultQuality = cfg.DefaultQuality
	}

	s.ctrl = player.NewController(deps.Primitive, log)
	s.quality = quality.NewAdapter(s.ctrl, opts.Qualities, defaultQuality, s.baseURL, quality.Hooks{
		OnChange:       s.onQualityChange,
		OnSwitchFailed: s.onQualitySwitchFailed,
	}, log)
	s.ctrl.SetAdvancer(s)
	s.ctrl.Observe(s.onTransition)

	s.routes()

	s.detach = append(s.detach, deps.Primitive.Subscribe(func(ev media.Event) {
		s.post(func() { s.ctrl.HandleEvent(ev) })
	}))
	if deps.Network != nil {
		s.detach = append(s.detach, deps.Network.SubscribeNetwork(func(u remote.NetworkUpdate) {
			s.post(func() { s.onNetwork(u) })
		}))
	}
	if deps.Chrome != nil {
		s.detach = append(s.detach, deps.Chrome.SubscribeFullscreen(func(fc remote.FullscreenChanged) {
			s.post(func() { s.onFullscreen(fc) })
		}))
	}

	return s, nil
}

// Start launches the event loop and loads the initial source.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Close stops the loop and waits until every listener is detached and every
// goroutine of the session has exited.
func (s *Session) Close() {
	s.stop()
	s.startOnce.Do(func() {
		s.teardown()
		close(s.stopped)
	})
	<-s.stopped
}

// Done is closed once the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

func (s *Session) stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *Session) run() {
	defer close(s.stopped)
	defer s.teardown()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	s.begin()
	s.flush()

	for {
		select {
		case <-s.quit:
			return
		case fn := <-s.events:
			fn()
		case <-s.previewCh:
			s.takePreview()
		case <-ticker.C:
			s.tick(s.cfg.Tick)
		}

		s.flush()
	}
}

func (s *Session) teardown() {
	s.cancel()

	for _, detach := range s.detach {
		detach()
	}
	s.detach = nil

	if s.preview != nil {
		s.preview.Close()
	}
	s.wg.Wait()
	s.hub.Close()

	s.log.Info("session closed")
}

// post hands fn to the loop. It reports false once the session is stopping.
func (s *Session) post(fn func()) bool {
	select {
	case <-s.quit:
		return false
	default:
	}

	select {
	case s.events <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it, including the snapshot it produces.
func (s *Session) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	ok := s.post(func() {
		fn()
		s.flush()
		close(done)
	})
	if !ok {
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// spawn runs fn off the loop. fn must post its outcome back.
func (s *Session) spawn(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *Session) touch() {
	s.lastActive.Store(s.now().UnixNano())
}

// Idle returns how long the session has gone without intents or host traffic.
func (s *Session) Idle() time.Duration {
	return s.now().Sub(time.Unix(0, s.lastActive.Load()))
}

// Touch records host traffic.
func (s *Session) Touch() {
	s.touch()
}

func (s *Session) begin() {
	s.log.Info("session started", "media_url", s.baseURL())

	if err := s.load(s.opts.InitialPosition, s.opts.Autoplay); err != nil {
		s.log.Error("failed to load initial source", "error", err)
	}
}

func (s *Session) tick(dt time.Duration) {
	if s.stats.Tick(dt) {
		s.dirty = true
	}
	if s.refreshChapter() {
		s.dirty = true
	}
	if s.visibility.Tick(dt) {
		s.chrome.Visible = false
		s.dirty = true
	}
}

func (s *Session) flush() {
	if !s.dirty {
		return
	}
	s.dirty = false

	s.version++
	s.hub.Publish(s.snapshot())
}

func (s *Session) baseURL() string {
	if s.playlist != nil {
		return s.playlist.Current().MediaURL
	}

	return s.opts.MediaURL
}

func (s *Session) mediaID() string {
	if s.playlist != nil {
		return s.playlist.Current().ID
	}
	if s.opts.MediaID != "" {
		return s.opts.MediaID
	}

	return s.opts.MediaURL
}

func (s *Session) title() string {
	if s.playlist != nil {
		return s.playlist.Current().Title
	}

	return s.opts.Title
}

func (s *Session) load(startAt float64, autoplay bool) error {
	tier, _ := s.quality.Current()

	return s.ctrl.Load(player.Source{
		URL:      s.quality.SourceURL(s.baseURL()),
		StartAt:  startAt,
		Autoplay: autoplay,
		Quality:  tier.Name,
	})
}

// retry reloads the tier the quality adapter holds now, which may differ from the
// one that failed.
func (s *Session) retry() error {
	tier, _ := s.quality.Current()
	return s.ctrl.RetryFrom(s.quality.SourceURL(s.baseURL()), tier.Name)
}

// Advance moves the playlist on when the current entry ends.
func (s *Session) Advance() (player.Source, bool) {
	if s.playlist == nil {
		return player.Source{}, false
	}

	entry, ok := s.playlist.Advance()
	if !ok {
		s.log.Debug("playlist finished")
		return player.Source{}, false
	}

	tier, _ := s.quality.Current()
	return player.Source{
		URL:      s.quality.SourceURL(entry.MediaURL),
		Autoplay: true,
		Quality:  tier.Name,
	}, true
}

func (s *Session) onTransition(t player.Transition) {
	s.stats.OnTransition(t)
	s.quality.OnTransition(t)

	s.visibility.SetPlaying(t.Next.IsPlaying)
	s.chrome.Visible = s.visibility.Visible()

	switch t.Cause {
	case player.CauseLoad:
		s.resetMedia(t.Next.MediaURL)
	case player.CauseReloadReady:
		if s.preview != nil {
			s.preview.Bind(t.Next.MediaURL)
		}
	case player.CauseMetadata:
		s.chapters.SetDuration(t.Next.Duration)
	}

	if t.Cause != player.CauseTime {
		s.refreshChapter()
	}

	s.updateErrorPanel(t)
	s.dirty = true
}

func (s *Session) resetMedia(url string) {
	s.gestures.Cancel()
	s.shown = nil
	if s.preview != nil {
		s.preview.Bind(url)
	}
	s.refreshLibrary()
}

func (s *Session) refreshChapter() bool {
	a, ok := s.chapters.Active(s.ctrl.State().CurrentTime)
	if !ok {
		changed := s.active != nil
		s.active = nil
		return changed
	}

	if s.active != nil && *s.active == a {
		return false
	}
	s.active = &a

	return true
}

var errorMessages = map[media.ErrorCode]string{
	media.CodeAborted:           "Playback was interrupted.",
	media.CodeNetwork:           "A network error stopped playback.",
	media.CodeDecode:            "The video could not be decoded.",
	media.CodeFormatUnsupported: "This video format is not supported.",
}

func (s *Session) updateErrorPanel(t player.Transition) {
	next := t.Next
	if next.Status != player.StatusErrored || next.Error == nil {
		s.errorPanel = nil
		return
	}

	if t.Prev.Status != player.StatusErrored {
		metrics.MediaErrors.WithLabelValues(string(next.Error.Code)).Inc()
	}

	fallback := surface.FallbackBack
	if s.playlist != nil && s.playlist.HasNext() {
		fallback = surface.FallbackNext
	}

	s.errorPanel = &surface.ErrorPanel{
		Code:      next.Error.Code,
		Message:   errorMessages[next.Error.Code],
		Retryable: next.Error.Recoverable(),
		Fallback:  fallback,
	}
}

func (s *Session) onQualityChange(c quality.Change) {
	s.log.Info("quality changed", "from", c.From.Name, "to", c.To.Name)
	s.stats.RecordQualityChange()
	metrics.QualityReloads.WithLabelValues("completed").Inc()
}

func (s *Session) onQualitySwitchFailed(tier quality.Tier, err *media.Error) {
	metrics.QualityReloads.WithLabelValues("failed").Inc()
	s.warn(WarningQualitySwitchFailed, fmt.Sprintf("Switching to %s quality failed.", tier.Name))
}

const WarningQualitySwitchFailed = "quality_switch_failed"

func (s *Session) warn(code, msg string) {
	s.warnings = append(s.warnings, surface.Warning{Code: code, Message: msg, At: s.now()})
	if over := len(s.warnings) - s.cfg.MaxWarnings; over > 0 {
		s.warnings = append([]surface.Warning(nil), s.warnings[over:]...)
	}
	s.dirty = true
}

func (s *Session) onNetwork(u remote.NetworkUpdate) {
	if u.Unavailable {
		s.quality.NetworkUnavailable()
	} else {
		s.quality.Sample(u.Sample)
	}
	s.dirty = true
}

func (s *Session) onFullscreen(fc remote.FullscreenChanged) {
	s.chrome.Fullscreen = fc.Fullscreen
	s.chrome.PictureInPicture = fc.PictureInPicture
	s.dirty = true
}

// offerPreview keeps only the result of the newest request. It never blocks.
func (s *Session) offerPreview(r preview.Result) {
	s.previewMu.Lock()
	if s.previewNext != nil && s.previewNext.Seq > r.Seq {
		s.previewMu.Unlock()
		return
	}
	s.previewNext = &r
	s.previewMu.Unlock()

	select {
	case s.previewCh <- struct{}{}:
	default:
	}
}

func (s *Session) takePreview() {
	s.previewMu.Lock()
	r := s.previewNext
	s.previewNext = nil
	s.previewMu.Unlock()

	if r == nil || s.preview == nil || !s.preview.Current(*r) {
		return
	}

	if r.Failed {
		s.shown = nil
	} else {
		s.shown = &surface.Preview{
			Time:        r.RequestedTime,
			Image:       r.Image,
			ContentType: r.ContentType,
			Width:       r.Width,
			Height:      r.Height,
		}
	}
	s.dirty = true
}

func (s *Session) refreshLibrary() {
	if s.library == nil {
		return
	}

	id := s.mediaID()
	bookmarked, err := s.library.Contains(s.ctx, library.Bookmarks, id)
	if err != nil {
		s.log.Warn("failed to read bookmarks", "error", err)
	}
	later, err := s.library.Contains(s.ctx, library.WatchLater, id)
	if err != nil {
		s.log.Warn("failed to read watch later list", "error", err)
	}

	s.flags = surface.Library{Bookmarked: bookmarked, WatchLater: later}
}
