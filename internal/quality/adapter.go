package quality

import (
	"fmt"
	"log/slog"

	"github.com/val-x/Val-X-Site-sub002/internal/media"
	"github.com/val-x/Val-X-Site-sub002/internal/player"
)

// Controller is the part of the playback controller the adapter drives.
type Controller interface {
	State() player.State
	Reloading() bool
	Reload(url, quality string) (player.Resume, error)
	Fail(err *media.Error)
}

// Change is reported when a reload completes on a different tier.
type Change struct {
	From Tier
	To   Tier
}

type Hooks struct {
	OnChange       func(Change)
	OnSwitchFailed func(tier Tier, err *media.Error)
}

type reloadAttempt struct {
	target   int
	prev     int
	fallback bool
}

// Adapter selects renditions from network samples and runs the reload protocol
// through the playback controller.
type Adapter struct {
	ctrl  Controller
	base  func() string
	log   *slog.Logger
	hooks Hooks

	tiers    []Tier
	current  int
	fallback int
	pinned   bool
	pin      int
	network  bool

	latest   *Sample
	pending  bool
	inflight *reloadAttempt
}

// NewAdapter starts on defaultTier, or the lowest tier when it is not listed.
// base returns the media URL the renditions derive from.
func NewAdapter(ctrl Controller, tiers []Tier, defaultTier string, base func() string, hooks Hooks, log *slog.Logger) *Adapter {
	a := &Adapter{
		ctrl:    ctrl,
		base:    base,
		log:     log,
		hooks:   hooks,
		tiers:   tiers,
		network: true,
	}

	for i, t := range tiers {
		if t.Name == defaultTier {
			a.fallback = i
		}
	}
	a.current = a.fallback

	return a
}

func (a *Adapter) Tiers() []Tier {
	out := make([]Tier, len(a.tiers))
	copy(out, a.tiers)
	return out
}

func (a *Adapter) Current() (Tier, bool) {
	if len(a.tiers) == 0 {
		return Tier{}, false
	}

	return a.tiers[a.current], true
}

func (a *Adapter) Pinned() bool {
	return a.pinned
}

func (a *Adapter) NetworkAvailable() bool {
	return a.network
}

// SourceURL returns the rendition of base for the current tier.
func (a *Adapter) SourceURL(base string) string {
	t, ok := a.Current()
	if !ok {
		return base
	}

	return RenditionURL(base, t)
}

// Sample records a network reading and re-evaluates the tier unless one is pinned.
func (a *Adapter) Sample(s Sample) {
	a.network = true
	a.latest = &s
	a.evaluate()
}

// NetworkUnavailable falls back to the default tier.
func (a *Adapter) NetworkUnavailable() {
	a.log.Info("network information unavailable, using default quality")
	a.network = false
	a.latest = nil
	a.evaluate()
}

// Choose pins a tier by name, or returns to automatic selection with Auto.
func (a *Adapter) Choose(name string) error {
	if len(a.tiers) == 0 {
		return ErrNoTiers
	}

	if name == Auto {
		a.pinned = false
		a.evaluate()
		return nil
	}

	for i, t := range a.tiers {
		if t.Name == name {
			a.pinned = true
			a.pin = i
			a.evaluate()
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

func (a *Adapter) target() int {
	if a.pinned {
		return a.pin
	}
	if !a.network || a.latest == nil {
		return a.fallback
	}

	return Select(len(a.tiers), *a.latest)
}

func (a *Adapter) evaluate() {
	if len(a.tiers) == 0 {
		return
	}

	if a.pinned || !a.network || a.latest != nil {
		a.switchTo(a.target())
	}
}

func (a *Adapter) busy() bool {
	return a.inflight != nil || a.ctrl.Reloading() || a.ctrl.State().Status == player.StatusLoading
}

func (a *Adapter) switchTo(target int) {
	if a.busy() {
		a.pending = true
		return
	}

	if target == a.current {
		return
	}

	switch a.ctrl.State().Status {
	case player.StatusIdle, player.StatusErrored:
		a.current = target
		return
	}

	a.start(&reloadAttempt{target: target, prev: a.current})
}

func (a *Adapter) start(attempt *reloadAttempt) {
	tier := a.tiers[attempt.target]
	a.inflight = attempt

	if _, err := a.ctrl.Reload(RenditionURL(a.base(), tier), tier.Name); err != nil {
		a.log.Warn("failed to start quality reload", "quality", tier.Name, "error", err)
		a.inflight = nil
	}
}

// OnTransition follows the reload protocol on playback transitions.
func (a *Adapter) OnTransition(t player.Transition) {
	switch t.Cause {
	case player.CauseReloadReady:
		a.completed()
	case player.CauseReloadFailed:
		a.failed(t.Err)
	case player.CauseLoad:
		a.inflight = nil
	case player.CauseMetadata:
		a.settle()
	}
}

func (a *Adapter) completed() {
	attempt := a.inflight
	if attempt == nil {
		return
	}
	a.inflight = nil

	from := a.tiers[a.current]
	a.current = attempt.target
	to := a.tiers[a.current]

	if from != to && a.hooks.OnChange != nil {
		a.hooks.OnChange(Change{From: from, To: to})
	}

	a.settle()
}

func (a *Adapter) failed(err *media.Error) {
	attempt := a.inflight
	if attempt == nil {
		return
	}

	tier := a.tiers[attempt.target]
	if !attempt.fallback {
		a.log.Warn("quality switch failed, falling back",
			"quality", tier.Name,
			"fallback", a.tiers[attempt.prev].Name,
			"error", err,
		)
		a.inflight = nil
		if a.pinned && a.pin == attempt.target {
			a.pin = attempt.prev
		}
		a.start(&reloadAttempt{target: attempt.prev, prev: attempt.prev, fallback: true})
		return
	}

	a.log.Error("quality fallback failed", "quality", tier.Name, "error", err)
	a.inflight = nil
	a.pending = false
	if a.hooks.OnSwitchFailed != nil {
		a.hooks.OnSwitchFailed(tier, err)
	}
	a.ctrl.Fail(err)
}

// settle re-evaluates a sample that arrived while the controller was busy.
func (a *Adapter) settle() {
	if !a.pending || a.busy() {
		return
	}

	a.pending = false
	a.evaluate()
}
