// Package media describes the boundary to the platform media primitive that decodes
// and renders video.
package media

type EventType string

const (
	EventMetadataReady  EventType = "metadata_ready"
	EventTimeChanged    EventType = "time_changed"
	EventBufferingStart EventType = "buffering_start"
	EventBufferingEnd   EventType = "buffering_end"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
)

// Event is emitted by a primitive. Duration is set for metadata_ready, Time for
// time_changed and Err for error.
type Event struct {
	Type     EventType `json:"type" validate:"required,oneof=metadata_ready time_changed buffering_start buffering_end ended error"`
	Duration float64   `json:"duration,omitempty" validate:"gte=0"`
	Time     float64   `json:"time,omitempty"`
	Err      *Error    `json:"error,omitempty"`
}

type Listener func(Event)

// Primitive is the decode/render surface driven by the playback controller.
// Commands are fire-and-forget; outcomes arrive as events.
type Primitive interface {
	Load(url string) error
	Play() error
	Pause() error
	Seek(t float64) error
	SetVolume(v float64) error
	SetMuted(muted bool) error
	SetRate(rate float64) error
	// Subscribe registers l for primitive events. The returned func detaches it.
	Subscribe(l Listener) (unsubscribe func())
}
