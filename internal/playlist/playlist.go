package playlist

import (
	"errors"
	"fmt"
)

var (
	ErrNavigationOutOfRange = errors.New("playlist navigation out of range")
	ErrEntryNotFound        = errors.New("playlist entry not found")
	ErrDuplicateEntry       = errors.New("duplicate playlist entry id")
	ErrEmptyPlaylist        = errors.New("playlist is empty")
)

type Entry struct {
	ID           string  `json:"id" validate:"required"`
	Title        string  `json:"title" validate:"max=200"`
	MediaURL     string  `json:"media_url" validate:"required,url"`
	DurationHint float64 `json:"duration_hint" validate:"gte=0"`
	Thumbnail    string  `json:"thumbnail,omitempty" validate:"omitempty,url"`
}

// Snapshot is an immutable copy of the navigator state.
type Snapshot struct {
	Entries      []Entry `json:"entries"`
	CurrentIndex int     `json:"current_index"`
	HasNext      bool    `json:"has_next"`
	HasPrevious  bool    `json:"has_previous"`
}

type Navigator struct {
	list    []Entry
	current int
}

func NewNavigator(entries []Entry, start int) (*Navigator, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyPlaylist
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	if start < 0 || start >= len(entries) {
		return nil, fmt.Errorf("%w: start index %d of %d", ErrNavigationOutOfRange, start, len(entries))
	}

	list := make([]Entry, len(entries))
	copy(list, entries)

	return &Navigator{
		list:    list,
		current: start,
	}, nil
}

func (n *Navigator) Length() int {
	return len(n.list)
}

func (n *Navigator) CurrentIndex() int {
	return n.current
}

func (n *Navigator) Current() Entry {
	return n.list[n.current]
}

func (n *Navigator) HasNext() bool {
	return n.current+1 < len(n.list)
}

func (n *Navigator) HasPrevious() bool {
	return n.current > 0
}

func (n *Navigator) GetByID(id string) (Entry, int, error) {
	for index, entry := range n.list {
		if entry.ID == id {
			return entry, index, nil
		}
	}

	return Entry{}, 0, ErrEntryNotFound
}

// Next moves one entry forward. It reports false at the last entry.
func (n *Navigator) Next() bool {
	if !n.HasNext() {
		return false
	}

	n.current++
	return true
}

// Previous moves one entry back. It reports false at the first entry.
func (n *Navigator) Previous() bool {
	if !n.HasPrevious() {
		return false
	}

	n.current--
	return true
}

func (n *Navigator) Navigate(index int) error {
	if index < 0 || index >= len(n.list) {
		return fmt.Errorf("%w: index %d of %d", ErrNavigationOutOfRange, index, len(n.list))
	}

	n.current = index
	return nil
}

// Advance moves to the next entry and returns it.
func (n *Navigator) Advance() (Entry, bool) {
	if !n.Next() {
		return Entry{}, false
	}

	return n.Current(), true
}

func (n *Navigator) Snapshot() Snapshot {
	entries := make([]Entry, len(n.list))
	copy(entries, n.list)

	return Snapshot{
		Entries:      entries,
		CurrentIndex: n.current,
		HasNext:      n.HasNext(),
		HasPrevious:  n.HasPrevious(),
	}
}
