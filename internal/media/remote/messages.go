package remote

import (
	"github.com/val-x/Val-X-Site-sub002/internal/media"
)

const (
	TypeMediaCommand      = "MEDIA_COMMAND"
	TypeMediaEvent        = "MEDIA_EVENT"
	TypeNetworkSample     = "NETWORK_SAMPLE"
	TypeCapabilities      = "CAPABILITIES"
	TypeCapabilityRequest = "CAPABILITY_REQUEST"
	TypeCapabilityResult  = "CAPABILITY_RESULT"
	TypeFullscreenChanged = "FULLSCREEN_CHANGED"
)

const (
	OpLoad   = "load"
	OpPlay   = "play"
	OpPause  = "pause"
	OpSeek   = "seek"
	OpVolume = "volume"
	OpMuted  = "muted"
	OpRate   = "rate"
)

type Command struct {
	Op    string  `json:"op"`
	URL   string  `json:"url,omitempty"`
	Value float64 `json:"value,omitempty"`
	Muted bool    `json:"muted,omitempty"`
}

// EventPayload is a media event as reported by a browser host. Errors carry either
// a code name or the numeric MediaError.code.
type EventPayload struct {
	Type      media.EventType `json:"type" validate:"required,oneof=metadata_ready time_changed buffering_start buffering_end ended error"`
	Duration  float64         `json:"duration" validate:"gte=0"`
	Time      float64         `json:"time"`
	ErrorCode string          `json:"error_code,omitempty" validate:"max=32"`
	HTMLCode  int             `json:"html_code,omitempty" validate:"gte=0,lte=4"`
	Message   string          `json:"message,omitempty" validate:"max=512"`
}

func (p EventPayload) Event() media.Event {
	ev := media.Event{
		Type:     p.Type,
		Duration: p.Duration,
		Time:     p.Time,
	}

	if p.Type == media.EventError {
		code := media.ParseCode(p.ErrorCode)
		if p.ErrorCode == "" && p.HTMLCode > 0 {
			code = media.CodeFromHTML(p.HTMLCode)
		}
		ev.Err = media.NewError(code, p.Message)
	}

	return ev
}

type CapabilityRequest struct {
	RequestID  string `json:"request_id"`
	Capability string `json:"capability"`
	Action     string `json:"action"`
	Data       string `json:"data,omitempty"`
}

const (
	ReasonUnsupported = "unsupported"
	ReasonDenied      = "denied"
)

type CapabilityResult struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty" validate:"max=256"`
}

type FullscreenChanged struct {
	Fullscreen       bool `json:"fullscreen"`
	PictureInPicture bool `json:"pip"`
}
