package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
)

var (
	ErrUnknownList = errors.New("unknown library list")
	ErrNoMediaID   = errors.New("media id is required")
)

type List string

const (
	Bookmarks  List = "bookmarks"
	WatchLater List = "watch-later"
)

func (l List) valid() bool {
	return l == Bookmarks || l == WatchLater
}

type Entry struct {
	MediaID       string    `json:"media_id"`
	Title         string    `json:"title"`
	SavedPosition float64   `json:"saved_position"`
	Duration      float64   `json:"duration"`
	SavedAt       time.Time `json:"saved_at"`
}

// Service keeps bookmark and watch-later lists. Items are stored as JSON documents
// and untouched items are written back verbatim.
type Service struct {
	store kv.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store kv.Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) decode(ctx context.Context, raw string) (Entry, bool) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		s.log.WarnContext(ctx, "skipping malformed library entry", "error", err)
		return Entry{}, false
	}

	return e, true
}

// Toggle adds entry to the list, or removes the entry with the same media id.
// It reports whether the entry is now present.
func (s *Service) Toggle(ctx context.Context, list List, entry Entry) (bool, error) {
	if !list.valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownList, list)
	}
	if entry.MediaID == "" {
		return false, ErrNoMediaID
	}

	items, err := s.store.Get(ctx, string(list))
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", list, err)
	}

	kept := make([]string, 0, len(items)+1)
	removed := false
	for _, raw := range items {
		if e, ok := s.decode(ctx, raw); ok && e.MediaID == entry.MediaID {
			removed = true
			continue
		}
		kept = append(kept, raw)
	}

	if !removed {
		if entry.SavedAt.IsZero() {
			entry.SavedAt = s.now().UTC()
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return false, fmt.Errorf("failed to encode entry: %w", err)
		}
		kept = append(kept, string(raw))
	}

	if err := s.store.Set(ctx, string(list), kept); err != nil {
		return false, fmt.Errorf("failed to set %s: %w", list, err)
	}

	s.log.DebugContext(ctx, "library toggled", "list", list, "media_id", entry.MediaID, "present", !removed)
	return !removed, nil
}

func (s *Service) ToggleBookmark(ctx context.Context, entry Entry) (bool, error) {
	return s.Toggle(ctx, Bookmarks, entry)
}

func (s *Service) ToggleWatchLater(ctx context.Context, entry Entry) (bool, error) {
	return s.Toggle(ctx, WatchLater, entry)
}

func (s *Service) List(ctx context.Context, list List) ([]Entry, error) {
	if !list.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownList, list)
	}

	items, err := s.store.Get(ctx, string(list))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", list, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, raw := range items {
		if e, ok := s.decode(ctx, raw); ok {
			entries = append(entries, e)
		}
	}

	return entries, nil
}

func (s *Service) Contains(ctx context.Context, list List, mediaID string) (bool, error) {
	entries, err := s.List(ctx, list)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.MediaID == mediaID {
			return true, nil
		}
	}

	return false, nil
}

func (s *Service) IsBookmarked(ctx context.Context, mediaID string) (bool, error) {
	return s.Contains(ctx, Bookmarks, mediaID)
}
