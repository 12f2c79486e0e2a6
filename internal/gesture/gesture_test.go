package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	viewport = Viewport{Width: 1000, Height: 500}
	baseline = Baseline{Time: 50, Volume: 0.5, Duration: 200}
	t0       = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func TestHorizontalDragSeeksFromGestureStart(t *testing.T) {
	in := NewInterpreter(Config{})
	in.Start(100, 100, t0, viewport, baseline)

	res, err := in.Move(105, 101)
	require.NoError(t, err)
	assert.Equal(t, KindNone, res.Kind)

	res, err = in.Move(300, 110)
	require.NoError(t, err)
	assert.Equal(t, KindSeek, res.Kind)
	// 200px of 1000px over 200s at half scale
	assert.InDelta(t, 70, res.Target, 1e-9)

	res, err = in.Move(300, 110)
	require.NoError(t, err)
	assert.InDelta(t, 70, res.Target, 1e-9, "repeated moves must not compound")

	res, err = in.Move(100, 400)
	require.NoError(t, err)
	assert.Equal(t, KindSeek, res.Kind, "axis stays committed")
	assert.InDelta(t, 50, res.Target, 1e-9)
}

func TestSeekDeltaIsCappedAtViewport(t *testing.T) {
	in := NewInterpreter(Config{})
	in.Start(0, 0, t0, viewport, Baseline{Time: 0, Volume: 1, Duration: 1000})

	res, err := in.Move(5000, 0)
	require.NoError(t, err)
	assert.InDelta(t, 500, res.Target, 1e-9)

	in.Start(0, 0, t0, viewport, baseline)
	res, err = in.Move(-5000, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Target)
}

func TestVerticalDragChangesVolume(t *testing.T) {
	in := NewInterpreter(Config{})
	in.Start(100, 300, t0, viewport, baseline)

	res, err := in.Move(102, 200)
	require.NoError(t, err)
	assert.Equal(t, KindVolume, res.Kind)
	assert.InDelta(t, 0.7, res.Target, 1e-9)

	res, err = in.Move(102, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Target)
}

func TestShortReleaseIsTap(t *testing.T) {
	in := NewInterpreter(Config{})
	in.Start(100, 100, t0, viewport, baseline)

	_, err := in.Move(103, 102)
	require.NoError(t, err)

	res, err := in.End(t0.Add(120 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, KindTap, res.Kind)
	assert.False(t, in.Active())
}

func TestLongReleaseOrCommittedIsNotTap(t *testing.T) {
	in := NewInterpreter(Config{})
	in.Start(100, 100, t0, viewport, baseline)
	res, err := in.End(t0.Add(400 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, KindNone, res.Kind)

	in.Start(100, 100, t0, viewport, baseline)
	_, err = in.Move(200, 100)
	require.NoError(t, err)
	res, err = in.End(t0.Add(50 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, KindNone, res.Kind)
}

func TestMoveWithoutStart(t *testing.T) {
	in := NewInterpreter(Config{})

	_, err := in.Move(1, 1)
	assert.ErrorIs(t, err, ErrNoGesture)
	_, err = in.End(t0)
	assert.ErrorIs(t, err, ErrNoGesture)
}
