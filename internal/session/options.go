package session

import (
	"time"

	"github.com/val-x/Val-X-Site-sub002/internal/chapter"
	"github.com/val-x/Val-X-Site-sub002/internal/gesture"
	"github.com/val-x/Val-X-Site-sub002/internal/playlist"
	"github.com/val-x/Val-X-Site-sub002/internal/preview"
	"github.com/val-x/Val-X-Site-sub002/internal/quality"
	"github.com/val-x/Val-X-Site-sub002/internal/visibility"
)

// Options is the configuration a session is created with.
type Options struct {
	// MediaURL may be empty when a playlist is given.
	MediaURL        string            `json:"media_url" validate:"omitempty,url"`
	MediaID         string            `json:"media_id" validate:"max=128"`
	Title           string            `json:"title" validate:"max=200"`
	InitialPosition float64           `json:"initial_position" validate:"gte=0"`
	Autoplay        bool              `json:"autoplay"`
	Playlist        []playlist.Entry  `json:"playlist" validate:"omitempty,max=500,dive"`
	PlaylistIndex   int               `json:"playlist_index" validate:"gte=0"`
	Chapters        []chapter.Chapter `json:"chapters" validate:"omitempty,max=500,dive"`
	Qualities       []quality.Tier    `json:"qualities" validate:"omitempty,max=16,dive"`
	DefaultQuality  string            `json:"default_quality" validate:"max=32"`
	// Profile selects the library scope. Sessions without one have no library.
	Profile string `json:"profile" validate:"omitempty,max=64,alphanum"`
}

// Config holds the service-wide tunables shared by every session.
type Config struct {
	Tick           time.Duration
	HideDelay      time.Duration
	DefaultQuality string
	Gesture        gesture.Config
	Preview        preview.Config
	QueueSize      int
	MaxWarnings    int
	// ChapterGrace is how far into a chapter "previous" restarts it instead of
	// jumping to the one before.
	ChapterGrace float64
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = 250 * time.Millisecond
	}
	if c.HideDelay <= 0 {
		c.HideDelay = visibility.DefaultDelay
	}
	if c.Gesture.Threshold <= 0 {
		c.Gesture.Threshold = gesture.DefaultThreshold
	}
	if c.Gesture.TapWindow <= 0 {
		c.Gesture.TapWindow = gesture.DefaultTapWindow
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxWarnings <= 0 {
		c.MaxWarnings = 5
	}
	if c.ChapterGrace <= 0 {
		c.ChapterGrace = 3
	}

	return c
}
