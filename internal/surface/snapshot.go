package surface

import (
	"fmt"
	"time"

	"github.com/val-x/Val-X-Site-sub002/internal/analytics"
	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/chapter"
	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/internal/player"
	"github.com/val-x/Val-X-Site-sub002/internal/playlist"
	"github.com/val-x/Val-X-Site-sub002/internal/quality"
)

type Kind string

const (
	MainControls   Kind = "main_controls"
	MiniPlayer     Kind = "mini_player"
	SettingsPanel  Kind = "settings_panel"
	PlaylistDrawer Kind = "playlist_drawer"
	ChapterBar     Kind = "chapter_bar"
)

var kinds = map[Kind]struct{}{
	MainControls:   {},
	MiniPlayer:     {},
	SettingsPanel:  {},
	PlaylistDrawer: {},
	ChapterBar:     {},
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	return k, nil
}

// Chrome is layout-only state. Changing it never touches the media.
type Chrome struct {
	Visible          bool `json:"visible"`
	MiniPlayer       bool `json:"mini_player"`
	Fullscreen       bool `json:"fullscreen"`
	PictureInPicture bool `json:"pip"`
	HelpOpen         bool `json:"help_open"`
	SettingsOpen     bool `json:"settings_open"`
	DrawerOpen       bool `json:"drawer_open"`
}

type QualityView struct {
	Tiers            []quality.Tier `json:"tiers"`
	Active           string         `json:"active"`
	Auto             bool           `json:"auto"`
	NetworkAvailable bool           `json:"network_available"`
}

type Preview struct {
	Time        float64 `json:"time"`
	Image       []byte  `json:"image"`
	ContentType string  `json:"content_type"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

const (
	FallbackNext = "next"
	FallbackBack = "back"
)

// ErrorPanel replaces the media view for recoverable and fatal media errors.
type ErrorPanel struct {
	Code      media.ErrorCode `json:"code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	Fallback  string          `json:"fallback"`
}

type Warning struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Library struct {
	Bookmarked bool `json:"bookmarked"`
	WatchLater bool `json:"watch_later"`
}

// Snapshot is an immutable view of one committed session state.
type Snapshot struct {
	Version      uint64             `json:"version"`
	Title        string             `json:"title"`
	Playback     player.State       `json:"playback"`
	Chapter      *chapter.Active    `json:"chapter,omitempty"`
	Chapters     []chapter.Chapter  `json:"chapters"`
	Playlist     *playlist.Snapshot `json:"playlist,omitempty"`
	Stats        analytics.Stats    `json:"stats"`
	Chrome       Chrome             `json:"chrome"`
	Quality      QualityView        `json:"quality"`
	Preview      *Preview           `json:"preview,omitempty"`
	ErrorPanel   *ErrorPanel        `json:"error_panel,omitempty"`
	Warnings     []Warning          `json:"warnings"`
	Library      Library            `json:"library"`
	Capabilities capability.Set     `json:"capabilities"`
	Surfaces     []Kind             `json:"surfaces"`
}
