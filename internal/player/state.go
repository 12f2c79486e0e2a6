package player

import (
	"math"

	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/pkg/clamp"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusBuffering Status = "buffering"
	StatusEnded     Status = "ended"
	StatusErrored   Status = "errored"
)

// Rates is the ordered set of accepted playback rates.
var Rates = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

const DefaultRate = 1.0

type State struct {
	Status        Status       `json:"status"`
	MediaURL      string       `json:"media_url"`
	CurrentTime   float64      `json:"current_time"`
	Duration      float64      `json:"duration"`
	IsPlaying     bool         `json:"is_playing"`
	IsBuffering   bool         `json:"is_buffering"`
	PlaybackRate  float64      `json:"playback_rate"`
	Volume        float64      `json:"volume"`
	Muted         bool         `json:"muted"`
	ActiveQuality string       `json:"active_quality"`
	Error         *media.Error `json:"error,omitempty"`
	Version       uint64       `json:"version"`
}

// EffectiveVolume is the volume actually heard. Muting keeps Volume for restore.
func (s State) EffectiveVolume() float64 {
	if s.Muted {
		return 0
	}

	return s.Volume
}

// Accruing reports whether the media is actually advancing.
func (s State) Accruing() bool {
	return s.Status == StatusPlaying && s.IsPlaying && !s.IsBuffering
}

func (s State) loaded() bool {
	switch s.Status {
	case StatusIdle, StatusLoading, StatusErrored:
		return false
	}

	return true
}

func (s State) clampTime(t float64) float64 {
	return clamp.Value(t, 0, math.Max(s.Duration, 0))
}

func nonNegative(t float64) float64 {
	if t != t || t < 0 {
		return 0
	}

	return t
}

func rateIndex(r float64) int {
	best := 0
	for i, rate := range Rates {
		if math.Abs(rate-r) < math.Abs(Rates[best]-r) {
			best = i
		}
	}

	return best
}

// SnapRate returns the accepted rate nearest to r. Values outside the set saturate
// to its bounds.
func SnapRate(r float64) float64 {
	if r != r {
		return DefaultRate
	}

	return Rates[rateIndex(r)]
}
