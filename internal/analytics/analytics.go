package analytics

import (
	"time"

	"github.com/val-x/Val-X-Site-sub002/internal/player"
)

type Stats struct {
	WatchTimeSeconds     int64   `json:"watch_time_seconds"`
	BufferingEvents      int     `json:"buffering_events"`
	QualityChanges       int     `json:"quality_changes"`
	AveragePlaybackSpeed float64 `json:"average_playback_speed"`
}

// Recorder accumulates the statistics of one session. Watch time only accrues
// while the media is actually advancing.
type Recorder struct {
	stats    Stats
	carry    time.Duration
	speedSum float64
	accruing bool
	rate     float64
}

func NewRecorder() *Recorder {
	return &Recorder{rate: player.DefaultRate}
}

func (r *Recorder) Stats() Stats {
	return r.stats
}

func (r *Recorder) OnTransition(t player.Transition) {
	r.accruing = t.Next.Accruing()
	r.rate = t.Next.PlaybackRate

	switch {
	case t.Prev.Status == player.StatusPlaying && t.Next.Status == player.StatusBuffering:
		r.stats.BufferingEvents++
	case t.Cause == player.CauseReloadStart && t.Prev.IsPlaying:
		r.stats.BufferingEvents++
	}
}

// RecordQualityChange counts a completed rendition switch.
func (r *Recorder) RecordQualityChange() {
	r.stats.QualityChanges++
}

// Tick advances the wall clock by dt and reports whether the stats changed.
func (r *Recorder) Tick(dt time.Duration) bool {
	if !r.accruing || dt <= 0 {
		return false
	}

	r.carry += dt
	changed := false
	for r.carry >= time.Second {
		r.carry -= time.Second
		r.stats.WatchTimeSeconds++
		r.speedSum += r.rate
		changed = true
	}

	if changed {
		r.stats.AveragePlaybackSpeed = r.speedSum / float64(r.stats.WatchTimeSeconds)
	}

	return changed
}
