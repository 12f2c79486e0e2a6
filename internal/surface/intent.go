package surface

import "time"

type IntentKind string

const (
	IntentPlay             IntentKind = "play"
	IntentPause            IntentKind = "pause"
	IntentTogglePlay       IntentKind = "toggle_play"
	IntentSeek             IntentKind = "seek"
	IntentSeekBy           IntentKind = "seek_by"
	IntentSetRate          IntentKind = "set_rate"
	IntentStepRate         IntentKind = "step_rate"
	IntentSetVolume        IntentKind = "set_volume"
	IntentChangeVolume     IntentKind = "change_volume"
	IntentToggleMute       IntentKind = "toggle_mute"
	IntentSelectQuality    IntentKind = "select_quality"
	IntentPlaylistNavigate IntentKind = "playlist_navigate"
	IntentPlaylistStep     IntentKind = "playlist_step"
	IntentChapterSelect    IntentKind = "chapter_select"
	IntentChapterStep      IntentKind = "chapter_step"
	IntentKey              IntentKind = "key"
	IntentGestureStart     IntentKind = "gesture_start"
	IntentGestureMove      IntentKind = "gesture_move"
	IntentGestureEnd       IntentKind = "gesture_end"
	IntentGestureCancel    IntentKind = "gesture_cancel"
	IntentHover            IntentKind = "hover"
	IntentHoverEnd         IntentKind = "hover_end"
	IntentActivity         IntentKind = "activity"
	IntentMiniPlayer       IntentKind = "mini_player"
	IntentFullscreen       IntentKind = "fullscreen"
	IntentPictureInPicture IntentKind = "pip"
	IntentSettings         IntentKind = "settings"
	IntentDrawer           IntentKind = "drawer"
	IntentHelp             IntentKind = "help"
	IntentRetry            IntentKind = "retry"
	IntentFallback         IntentKind = "fallback"
	IntentToggleBookmark   IntentKind = "toggle_bookmark"
	IntentToggleWatchLater IntentKind = "toggle_watch_later"
	IntentShare            IntentKind = "share"
	IntentDismissWarnings  IntentKind = "dismiss_warnings"
)

// Intent is a user action sent by a surface. Only the fields relevant to Kind are
// read.
type Intent struct {
	Kind             IntentKind `json:"kind" validate:"required,max=32"`
	Time             float64    `json:"time"`
	Delta            float64    `json:"delta"`
	Value            float64    `json:"value"`
	Index            int        `json:"index"`
	Direction        int        `json:"direction" validate:"gte=-1,lte=1"`
	Enabled          bool       `json:"enabled"`
	Key              string     `json:"key" validate:"max=32"`
	TextInputFocused bool       `json:"text_input_focused"`
	X                float64    `json:"x"`
	Y                float64    `json:"y"`
	ViewportWidth    float64    `json:"viewport_width" validate:"gte=0"`
	ViewportHeight   float64    `json:"viewport_height" validate:"gte=0"`
	Quality          string     `json:"quality" validate:"max=32"`
	ChapterID        string     `json:"chapter_id" validate:"max=64"`

	SurfaceID string    `json:"-"`
	Surface   Kind      `json:"-"`
	At        time.Time `json:"-"`
}

type Handler func(Intent) error
