package gesture

import (
	"errors"
	"math"
	"time"

	"github.com/val-x/Val-X-Site-sub002/pkg/clamp"
)

var ErrNoGesture = errors.New("no gesture in progress")

const (
	DefaultThreshold = 10.0
	DefaultTapWindow = 300 * time.Millisecond
	seekScale        = 0.5
)

type Axis string

const (
	AxisNone   Axis = ""
	AxisSeek   Axis = "seek"
	AxisVolume Axis = "volume"
)

type Kind string

const (
	KindNone   Kind = ""
	KindSeek   Kind = "seek"
	KindVolume Kind = "volume"
	KindTap    Kind = "tap"
)

// Result is what a gesture event resolves to. Target is an absolute media time for
// KindSeek and an absolute volume for KindVolume.
type Result struct {
	Kind   Kind
	Target float64
}

// Baseline is the playback state captured when the gesture starts.
type Baseline struct {
	Time     float64
	Volume   float64
	Duration float64
}

type Viewport struct {
	Width  float64
	Height float64
}

type Config struct {
	Threshold float64
	TapWindow time.Duration
}

type gestureStart struct {
	x, y     float64
	at       time.Time
	baseline Baseline
	viewport Viewport
}

// Interpreter classifies one pointer gesture at a time. Deltas are always taken
// from the gesture start, and are capped at the viewport extent.
type Interpreter struct {
	cfg   Config
	start *gestureStart
	axis  Axis
}

func NewInterpreter(cfg Config) *Interpreter {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.TapWindow <= 0 {
		cfg.TapWindow = DefaultTapWindow
	}

	return &Interpreter{cfg: cfg}
}

func (in *Interpreter) Active() bool {
	return in.start != nil
}

func (in *Interpreter) Axis() Axis {
	return in.axis
}

// Start begins a gesture, replacing any gesture in progress.
func (in *Interpreter) Start(x, y float64, at time.Time, viewport Viewport, baseline Baseline) {
	in.start = &gestureStart{
		x:        x,
		y:        y,
		at:       at,
		baseline: baseline,
		viewport: viewport,
	}
	in.axis = AxisNone
}

func (in *Interpreter) Move(x, y float64) (Result, error) {
	s := in.start
	if s == nil {
		return Result{}, ErrNoGesture
	}

	dx := clamp.Symmetric(x-s.x, s.viewport.Width)
	dy := clamp.Symmetric(y-s.y, s.viewport.Height)

	if in.axis == AxisNone {
		adx, ady := math.Abs(dx), math.Abs(dy)
		switch {
		case adx > ady && adx > in.cfg.Threshold:
			in.axis = AxisSeek
		case ady > adx && ady > in.cfg.Threshold:
			in.axis = AxisVolume
		default:
			return Result{}, nil
		}
	}

	switch in.axis {
	case AxisSeek:
		if s.viewport.Width <= 0 {
			return Result{}, nil
		}
		delta := dx / s.viewport.Width * s.baseline.Duration * seekScale
		return Result{
			Kind:   KindSeek,
			Target: clamp.Value(s.baseline.Time+delta, 0, math.Max(s.baseline.Duration, 0)),
		}, nil
	case AxisVolume:
		if s.viewport.Height <= 0 {
			return Result{}, nil
		}
		delta := -dy / s.viewport.Height
		return Result{
			Kind:   KindVolume,
			Target: clamp.Value(s.baseline.Volume+delta, 0, 1),
		}, nil
	}

	return Result{}, nil
}

// End finishes the gesture. A short release that never committed to an axis is a tap.
func (in *Interpreter) End(at time.Time) (Result, error) {
	s := in.start
	if s == nil {
		return Result{}, ErrNoGesture
	}

	axis := in.axis
	in.Cancel()

	if axis == AxisNone && at.Sub(s.at) < in.cfg.TapWindow {
		return Result{Kind: KindTap}, nil
	}

	return Result{}, nil
}

func (in *Interpreter) Cancel() {
	in.start = nil
	in.axis = AxisNone
}
