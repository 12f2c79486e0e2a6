package testutil

import (
	"context"
	"sync"

	"github.com/val-x/Val-X-Site-sub002/internal/capability"
)

type Invocation struct {
	Kind   capability.Kind
	Action capability.Action
	Data   string
}

// Platform resolves capability requests immediately, rejecting with Reject when set.
type Platform struct {
	mu          sync.Mutex
	set         capability.Set
	reject      error
	invocations []Invocation
}

func NewPlatform(set capability.Set) *Platform {
	return &Platform{set: set}
}

func (p *Platform) Capabilities() capability.Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set
}

func (p *Platform) SetCapabilities(set capability.Set) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = set
}

func (p *Platform) Reject(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reject = err
}

func (p *Platform) Invoke(ctx context.Context, kind capability.Kind, action capability.Action, data string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	p.invocations = append(p.invocations, Invocation{Kind: kind, Action: action, Data: data})
	return p.reject
}

func (p *Platform) Invocations() []Invocation {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Invocation, len(p.invocations))
	copy(out, p.invocations)
	return out
}
