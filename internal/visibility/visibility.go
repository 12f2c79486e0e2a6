package visibility

import "time"

const DefaultDelay = 3000 * time.Millisecond

type State string

const (
	Visible      State = "visible"
	CountingDown State = "counting_down"
	Hidden       State = "hidden"
)

// Timer hides transient chrome after a period without activity. It owns no clock:
// the session tick advances it.
type Timer struct {
	delay     time.Duration
	state     State
	remaining time.Duration
	playing   bool
}

func NewTimer(delay time.Duration) *Timer {
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Timer{
		delay: delay,
		state: Visible,
	}
}

func (t *Timer) State() State {
	return t.state
}

func (t *Timer) Visible() bool {
	return t.state != Hidden
}

func (t *Timer) Remaining() time.Duration {
	if t.state != CountingDown {
		return 0
	}

	return t.remaining
}

// Activity shows the chrome and restarts the countdown while playing.
// It reports whether the visible state changed.
func (t *Timer) Activity() bool {
	wasVisible := t.Visible()
	t.show()

	return !wasVisible
}

// SetPlaying follows the playback state. Pausing forces the chrome visible and
// cancels the countdown.
func (t *Timer) SetPlaying(playing bool) bool {
	if playing == t.playing {
		return false
	}
	t.playing = playing

	wasVisible := t.Visible()
	t.show()

	return !wasVisible
}

func (t *Timer) show() {
	if t.playing {
		t.state = CountingDown
		t.remaining = t.delay
		return
	}

	t.state = Visible
	t.remaining = 0
}

// Tick advances the countdown by dt and reports whether the chrome became hidden.
func (t *Timer) Tick(dt time.Duration) bool {
	if t.state != CountingDown {
		return false
	}

	t.remaining -= dt
	if t.remaining > 0 {
		return false
	}

	t.state = Hidden
	t.remaining = 0
	return true
}
