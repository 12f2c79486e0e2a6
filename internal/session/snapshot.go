package session

import (
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
)

func (s *Session) snapshot() surface.Snapshot {
	tier, _ := s.quality.Current()

	snap := surface.Snapshot{
		Version:  s.version,
		Title:    s.title(),
		Playback: s.ctrl.State(),
		Chapters: s.chapters.Chapters(),
		Stats:    s.stats.Stats(),
		Chrome:   s.chrome,
		Quality: surface.QualityView{
			Tiers:            s.quality.Tiers(),
			Active:           tier.Name,
			Auto:             !s.quality.Pinned(),
			NetworkAvailable: s.quality.NetworkAvailable(),
		},
		Warnings: append([]surface.Warning(nil), s.warnings...),
		Library:  s.flags,
		Surfaces: s.hub.Mounted(),
	}

	if s.active != nil {
		a := *s.active
		snap.Chapter = &a
	}
	if s.playlist != nil {
		ps := s.playlist.Snapshot()
		snap.Playlist = &ps
	}
	if s.shown != nil {
		p := *s.shown
		snap.Preview = &p
	}
	if s.errorPanel != nil {
		e := *s.errorPanel
		snap.ErrorPanel = &e
	}
	if s.platform != nil {
		snap.Capabilities = s.platform.Capabilities()
	}

	return snap
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() (surface.Snapshot, bool) {
	return s.hub.Latest()
}

// Mount attaches a surface. Its mailbox starts with the latest snapshot.
func (s *Session) Mount(kind surface.Kind) (*surface.Subscription, error) {
	sub, err := s.hub.Subscribe(kind)
	if err != nil {
		return nil, err
	}

	s.post(func() { s.dirty = true })
	return sub, nil
}

func (s *Session) Unmount(id string) {
	s.hub.Unsubscribe(id)
	s.post(func() { s.dirty = true })
}

// Mounted lists the kinds of the attached surfaces.
func (s *Session) Mounted() []surface.Kind {
	return s.hub.Mounted()
}
