package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/val-x/Val-X-Site-sub002/internal/metrics"
)

// Surface is the auxiliary decode surface. It is never the surface that plays the
// media. Seek returns once the frame at t is available to Frame.
type Surface interface {
	Seek(ctx context.Context, source string, t float64) error
	Frame(ctx context.Context) (image.Image, error)
}

type Result struct {
	RequestedTime float64   `json:"requested_time"`
	Image         []byte    `json:"image,omitempty"`
	ContentType   string    `json:"content_type,omitempty"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
	Failed        bool      `json:"failed,omitempty"`

	// Seq orders results by the request that produced them.
	Seq uint64 `json:"-"`
}

type Config struct {
	Width     int
	Quality   int
	CacheSize int
}

type cacheKey struct {
	source string
	bucket int64
}

// Pipeline renders scrub previews off the session loop. Only the latest request
// may publish: older renders are cancelled and their results discarded.
type Pipeline struct {
	surface Surface
	cfg     Config
	log     *slog.Logger
	deliver func(Result)

	cb    *gobreaker.CircuitBreaker[Result]
	cache *lru.Cache[cacheKey, Result]

	mu     sync.Mutex
	seq    uint64
	source string
	cancel context.CancelFunc
	closed bool

	slot sync.Mutex
	wg   sync.WaitGroup
}

// New creates a pipeline. deliver is called with the pipeline lock held, from render
// goroutines or from Request, and must hand the result over without blocking or
// calling back into the pipeline.
func New(surface Surface, cfg Config, deliver func(Result), log *slog.Logger) (*Pipeline, error) {
	if cfg.Width <= 0 {
		cfg.Width = 160
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 70
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}

	cache, err := lru.New[cacheKey, Result](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}

	p := &Pipeline{
		surface: surface,
		cfg:     cfg,
		log:     log,
		deliver: deliver,
		cache:   cache,
	}

	p.cb = gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "preview-extractor",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("preview circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return p, nil
}

func bucket(t float64) int64 {
	return int64(math.Round(t * 10))
}

// Bind points the pipeline at a new media source, dropping any outstanding render.
func (p *Pipeline) Bind(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if source == p.source {
		return
	}

	p.source = source
	p.invalidate()
}

// invalidate requires p.mu.
func (p *Pipeline) invalidate() {
	p.seq++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Request asks for a preview at t, superseding any earlier request.
func (p *Pipeline) Request(t float64) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.source == "" {
		p.mu.Unlock()
		return ErrNoSource
	}

	p.invalidate()
	seq := p.seq
	source := p.source

	if res, ok := p.cache.Get(cacheKey{source: source, bucket: bucket(t)}); ok {
		res.RequestedTime = t
		res.Seq = seq
		metrics.PreviewOutcomes.WithLabelValues("cached").Inc()
		p.deliver(res)
		p.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go p.render(ctx, seq, source, t)
	return nil
}

// Cancel drops the outstanding request, if any.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidate()
}

// Current reports whether r answers the latest request.
func (p *Pipeline) Current(r Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Seq == p.seq
}

// Close cancels outstanding work and waits for render goroutines to exit.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.invalidate()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pipeline) render(ctx context.Context, seq uint64, source string, t float64) {
	defer p.wg.Done()

	p.slot.Lock()
	defer p.slot.Unlock()

	if ctx.Err() != nil {
		metrics.PreviewOutcomes.WithLabelValues("superseded").Inc()
		return
	}

	res, err := p.cb.Execute(func() (Result, error) {
		return p.generate(ctx, source, t)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			metrics.PreviewOutcomes.WithLabelValues("superseded").Inc()
			return
		}

		p.log.Warn("preview generation failed", "time", t, "error", err)
		metrics.PreviewOutcomes.WithLabelValues("failed").Inc()
		p.publish(Result{RequestedTime: t, Failed: true, GeneratedAt: time.Now(), Seq: seq})
		return
	}

	p.cache.Add(cacheKey{source: source, bucket: bucket(t)}, res)
	res.Seq = seq
	p.publish(res)
}

func (p *Pipeline) generate(ctx context.Context, source string, t float64) (Result, error) {
	if err := p.surface.Seek(ctx, source, t); err != nil {
		return Result{}, fmt.Errorf("%w: failed to seek auxiliary surface: %w", ErrGeneration, err)
	}

	frame, err := p.surface.Frame(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to rasterize frame: %w", ErrGeneration, err)
	}
	if frame == nil || frame.Bounds().Empty() {
		return Result{}, ErrEmptyFrame
	}

	scaled := downscale(frame, p.cfg.Width)
	data, err := encode(scaled, p.cfg.Quality)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return Result{
		RequestedTime: t,
		Image:         data,
		ContentType:   ContentTypeJPEG,
		Width:         scaled.Bounds().Dx(),
		Height:        scaled.Bounds().Dy(),
		GeneratedAt:   time.Now(),
	}, nil
}

// publish hands r to the session unless a newer request superseded it. The check
// and the hand-over happen under p.mu so a superseded result cannot be delivered
// after the result of a newer request.
func (p *Pipeline) publish(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.Seq != p.seq {
		metrics.PreviewOutcomes.WithLabelValues("discarded").Inc()
		return
	}

	metrics.PreviewOutcomes.WithLabelValues("rendered").Inc()
	p.deliver(r)
}
