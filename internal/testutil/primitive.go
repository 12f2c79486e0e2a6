// Package testutil provides in-memory fakes for the external collaborators of a
// playback session.
package testutil

import (
	"sync"

	"github.com/val-x/Val-X-Site-sub002/internal/media"
)

type Call struct {
	Op  string
	Arg any
}

// Primitive records every command and lets tests emit events.
type Primitive struct {
	mu        sync.Mutex
	calls     []Call
	listeners map[int]media.Listener
	nextID    int
	err       error
}

func NewPrimitive() *Primitive {
	return &Primitive{listeners: make(map[int]media.Listener)}
}

// FailWith makes every following command return err. nil restores success.
func (p *Primitive) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *Primitive) record(op string, arg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.calls = append(p.calls, Call{Op: op, Arg: arg})
	return nil
}

func (p *Primitive) Load(url string) error     { return p.record("load", url) }
func (p *Primitive) Play() error               { return p.record("play", nil) }
func (p *Primitive) Pause() error              { return p.record("pause", nil) }
func (p *Primitive) Seek(t float64) error      { return p.record("seek", t) }
func (p *Primitive) SetVolume(v float64) error { return p.record("volume", v) }
func (p *Primitive) SetMuted(m bool) error     { return p.record("muted", m) }
func (p *Primitive) SetRate(r float64) error   { return p.record("rate", r) }

func (p *Primitive) Subscribe(l media.Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = l

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Emit delivers ev to every subscribed listener.
func (p *Primitive) Emit(ev media.Event) {
	p.mu.Lock()
	listeners := make([]media.Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

func (p *Primitive) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *Primitive) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Ops returns the recorded operation names in order.
func (p *Primitive) Ops() []string {
	calls := p.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was issued.
func (p *Primitive) Count(op string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (p *Primitive) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
