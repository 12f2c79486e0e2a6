package surface

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Subscription is the mailbox of one mounted surface. It holds only the newest
// undelivered snapshot.
type Subscription struct {
	ID   string
	Kind Kind

	mu        sync.Mutex
	latest    *Snapshot
	delivered uint64
	closed    bool
	notify    chan struct{}
}

func newSubscription(kind Kind) *Subscription {
	return &Subscription{
		ID:     uuid.NewString(),
		Kind:   kind,
		notify: make(chan struct{}, 1),
	}
}

func (s *Subscription) offer(snap *Snapshot) {
	s.mu.Lock()
	if s.closed || (s.latest != nil && snap.Version <= s.latest.Version) {
		s.mu.Unlock()
		return
	}
	s.latest = snap
	s.mu.Unlock()

	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wake()
}

// Next blocks until a snapshot newer than the last delivered one is available.
// Snapshots superseded before delivery are skipped.
func (s *Subscription) Next(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.latest != nil && s.latest.Version > s.delivered {
			snap := *s.latest
			s.delivered = snap.Version
			s.mu.Unlock()
			return snap, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return Snapshot{}, ErrClosed
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// Hub fans snapshots out to mounted surfaces and routes their intents.
type Hub struct {
	log *slog.Logger

	mu     sync.RWMutex
	subs   map[string]*Subscription
	latest *Snapshot
	closed bool

	routes map[IntentKind]Handler
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:    log,
		subs:   make(map[string]*Subscription),
		routes: make(map[IntentKind]Handler),
	}
}

// Subscribe mounts a surface. The latest snapshot, if any, is waiting in its
// mailbox.
func (h *Hub) Subscribe(kind Kind) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	sub := newSubscription(kind)
	if h.latest != nil {
		sub.offer(h.latest)
	}
	h.subs[sub.ID] = sub

	h.log.Debug("surface mounted", "surface_id", sub.ID, "kind", kind)
	return sub, nil
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	if ok {
		sub.close()
		h.log.Debug("surface unmounted", "surface_id", id, "kind", sub.Kind)
	}
}

// Mounted lists the kinds of the mounted surfaces, sorted and deduplicated.
func (h *Hub) Mounted() []Kind {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[Kind]struct{}, len(h.subs))
	out := make([]Kind, 0, len(h.subs))
	for _, sub := range h.subs {
		if _, ok := seen[sub.Kind]; ok {
			continue
		}
		seen[sub.Kind] = struct{}{}
		out = append(out, sub.Kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Publish offers snap to every surface. Snapshots not newer than the last
// published one are dropped.
func (h *Hub) Publish(snap Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || (h.latest != nil && snap.Version <= h.latest.Version) {
		return false
	}

	h.latest = &snap
	for _, sub := range h.subs {
		sub.offer(h.latest)
	}

	return true
}

func (h *Hub) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.latest == nil {
		return Snapshot{}, false
	}

	return *h.latest, true
}

// Handle registers the handler for an intent kind. Registration happens before the
// session starts routing.
func (h *Hub) Handle(kind IntentKind, handler Handler) {
	h.routes[kind] = handler
}

// Route delivers in to its handler on the caller's goroutine.
func (h *Hub) Route(in Intent) error {
	handler, ok := h.routes[in.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)
	}

	return handler(in)
}

// Close unmounts every surface and rejects further subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
