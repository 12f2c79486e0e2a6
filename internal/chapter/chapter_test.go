package chapter

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeChapters(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex([]Chapter{
		{ID: "1", Title: "Intro", StartTime: 0},
		{ID: "2", Title: "Middle", StartTime: 60},
		{ID: "3", Title: "Outro", StartTime: 120},
	}, 180)
	require.NoError(t, err)
	return idx
}

func TestActiveScenario(t *testing.T) {
	idx := threeChapters(t)

	active, ok := idx.Active(95)
	require.True(t, ok)
	assert.Equal(t, "2", active.Chapter.ID)
	assert.Equal(t, 120.0, active.End)
	assert.InDelta(t, 0.583, active.Progress, 0.001)
}

func TestActiveLastChapterEndsAtDuration(t *testing.T) {
	idx := threeChapters(t)

	active, ok := idx.Active(150)
	require.True(t, ok)
	assert.Equal(t, "3", active.Chapter.ID)
	assert.Equal(t, 180.0, active.End)
	assert.InDelta(t, 0.5, active.Progress, 1e-9)

	active, ok = idx.Active(180)
	require.True(t, ok)
	assert.Equal(t, 1.0, active.Progress)
}

func TestActiveBeforeFirstChapter(t *testing.T) {
	idx, err := NewIndex([]Chapter{{ID: "a", StartTime: 10}}, 100)
	require.NoError(t, err)

	_, ok := idx.Active(9.99)
	assert.False(t, ok)

	empty, err := NewIndex(nil, 100)
	require.NoError(t, err)
	_, ok = empty.Active(50)
	assert.False(t, ok)
}

func TestActiveMatchesLinearScan(t *testing.T) {
	chapters := []Chapter{
		{ID: "a", StartTime: 5},
		{ID: "b", StartTime: 17.5},
		{ID: "c", StartTime: 40},
		{ID: "d", StartTime: 41},
		{ID: "e", StartTime: 299},
	}
	idx, err := NewIndex(chapters, 300)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		ts := rng.Float64() * 300

		want := -1
		for j, c := range chapters {
			if c.StartTime <= ts {
				want = j
			}
		}

		active, ok := idx.Active(ts)
		if want < 0 {
			assert.False(t, ok, "t=%f", ts)
			continue
		}
		require.True(t, ok, "t=%f", ts)
		assert.Equal(t, chapters[want].ID, active.Chapter.ID, "t=%f", ts)
		assert.GreaterOrEqual(t, active.Progress, 0.0)
		assert.LessOrEqual(t, active.Progress, 1.0)
	}
}

func TestUnknownDurationGivesZeroProgress(t *testing.T) {
	idx, err := NewIndex([]Chapter{{ID: "a", StartTime: 0}, {ID: "b", StartTime: 30}}, 0)
	require.NoError(t, err)

	active, ok := idx.Active(45)
	require.True(t, ok)
	assert.Equal(t, 0.0, active.Progress)

	idx.SetDuration(60)
	active, _ = idx.Active(45)
	assert.InDelta(t, 0.5, active.Progress, 1e-9)
}

func TestNewIndexValidation(t *testing.T) {
	_, err := NewIndex([]Chapter{{ID: "a", StartTime: 10}, {ID: "b", StartTime: 5}}, 0)
	assert.True(t, errors.Is(err, ErrUnordered))

	_, err = NewIndex([]Chapter{{ID: "a", StartTime: 0}, {ID: "a", StartTime: 5}}, 0)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	_, err = NewIndex([]Chapter{{ID: "a", StartTime: -1}}, 0)
	assert.True(t, errors.Is(err, ErrNegative))
}

func TestNextPrevious(t *testing.T) {
	idx := threeChapters(t)

	next, ok := idx.Next(95)
	require.True(t, ok)
	assert.Equal(t, "3", next.ID)

	_, ok = idx.Next(130)
	assert.False(t, ok)

	prev, ok := idx.Previous(95, 2)
	require.True(t, ok)
	assert.Equal(t, "2", prev.ID)

	prev, ok = idx.Previous(61, 2)
	require.True(t, ok)
	assert.Equal(t, "1", prev.ID)

	c, ok := idx.ByID("3")
	require.True(t, ok)
	assert.Equal(t, 120.0, c.StartTime)
}
