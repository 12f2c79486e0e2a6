package chapter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/val-x/Val-X-Site-sub002/pkg/clamp"
)

var (
	ErrUnordered   = errors.New("chapters are not in ascending start order")
	ErrDuplicateID = errors.New("duplicate chapter id")
	ErrNegative    = errors.New("chapter start time is negative")
)

type Chapter struct {
	ID        string  `json:"id" validate:"required"`
	Title     string  `json:"title" validate:"max=200"`
	StartTime float64 `json:"start_time" validate:"gte=0"`
}

// Active describes the chapter covering a point on the timeline.
type Active struct {
	Chapter  Chapter `json:"chapter"`
	Index    int     `json:"index"`
	End      float64 `json:"end"`
	Progress float64 `json:"progress"`
}

// Index answers chapter lookups for one media item. It is immutable apart from the
// duration, which is only known once the media metadata is loaded.
type Index struct {
	chapters []Chapter
	duration float64
}

func NewIndex(chapters []Chapter, duration float64) (*Index, error) {
	seen := make(map[string]struct{}, len(chapters))
	for i, c := range chapters {
		if c.StartTime < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNegative, c.ID)
		}
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = struct{}{}

		if i > 0 && c.StartTime <= chapters[i-1].StartTime {
			return nil, fmt.Errorf("%w: %q starts at %.3f", ErrUnordered, c.ID, c.StartTime)
		}
	}

	list := make([]Chapter, len(chapters))
	copy(list, chapters)

	return &Index{
		chapters: list,
		duration: duration,
	}, nil
}

func (idx *Index) SetDuration(d float64) {
	idx.duration = d
}

func (idx *Index) Len() int {
	return len(idx.chapters)
}

// Chapters returns a copy of the chapter list.
func (idx *Index) Chapters() []Chapter {
	out := make([]Chapter, len(idx.chapters))
	copy(out, idx.chapters)
	return out
}

// search returns the position of the chapter with the greatest start time <= t,
// or -1 when t precedes every chapter.
func (idx *Index) search(t float64) int {
	n := sort.Search(len(idx.chapters), func(i int) bool {
		return idx.chapters[i].StartTime > t
	})

	return n - 1
}

func (idx *Index) end(i int) float64 {
	if i+1 < len(idx.chapters) {
		return idx.chapters[i+1].StartTime
	}

	return idx.duration
}

// Active returns the chapter active at t.
func (idx *Index) Active(t float64) (Active, bool) {
	i := idx.search(t)
	if i < 0 {
		return Active{}, false
	}

	c := idx.chapters[i]
	end := idx.end(i)

	var progress float64
	if span := end - c.StartTime; span > 0 {
		progress = clamp.Value((t-c.StartTime)/span, 0, 1)
	}

	return Active{
		Chapter:  c,
		Index:    i,
		End:      end,
		Progress: progress,
	}, true
}

// Next returns the first chapter starting strictly after t.
func (idx *Index) Next(t float64) (Chapter, bool) {
	i := idx.search(t) + 1
	if i >= len(idx.chapters) {
		return Chapter{}, false
	}

	return idx.chapters[i], true
}

// Previous returns the start of the active chapter, or the chapter before it when t
// is within grace seconds of the active chapter start.
func (idx *Index) Previous(t, grace float64) (Chapter, bool) {
	i := idx.search(t)
	if i < 0 {
		return Chapter{}, false
	}

	if t-idx.chapters[i].StartTime <= grace && i > 0 {
		return idx.chapters[i-1], true
	}

	return idx.chapters[i], true
}

// ByID returns the chapter with the given id.
func (idx *Index) ByID(id string) (Chapter, bool) {
	for _, c := range idx.chapters {
		if c.ID == id {
			return c, true
		}
	}

	return Chapter{}, false
}
