package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
)

type repo struct {
	mu     sync.RWMutex
	data   map[string]map[string][]string
	held   map[string]struct{}
	closed bool
}

func NewRepo() *repo {
	return &repo{
		data: make(map[string]map[string][]string),
		held: make(map[string]struct{}),
	}
}

func (r *repo) Acquire(ctx context.Context, scope string) (kv.Handle, error) {
	funcName := "kv.inmemory.Acquire"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.DebugContext(ctx, funcName, "scope", scope)
	if r.closed {
		return nil, kv.ErrClosed
	}
	if _, ok := r.held[scope]; ok {
		slog.InfoContext(ctx, funcName, "error", kv.ErrScopeBusy)
		return nil, kv.ErrScopeBusy
	}

	r.held[scope] = struct{}{}
	if r.data[scope] == nil {
		r.data[scope] = make(map[string][]string)
	}

	return &handle{repo: r, scope: scope}, nil
}

func (r *repo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type handle struct {
	repo     *repo
	scope    string
	released bool
}

func (h *handle) Get(ctx context.Context, key string) ([]string, error) {
	h.repo.mu.RLock()
	defer h.repo.mu.RUnlock()

	if h.released {
		return nil, kv.ErrReleased
	}

	list := h.repo.data[h.scope][key]
	out := make([]string, len(list))
	copy(out, list)

	slog.DebugContext(ctx, "kv.inmemory.Get", "key", key, "len", len(out))
	return out, nil
}

func (h *handle) Set(ctx context.Context, key string, list []string) error {
	h.repo.mu.Lock()
	defer h.repo.mu.Unlock()

	if h.released {
		return kv.ErrReleased
	}

	slog.DebugContext(ctx, "kv.inmemory.Set", "key", key, "len", len(list))
	if len(list) == 0 {
		delete(h.repo.data[h.scope], key)
		return nil
	}

	stored := make([]string, len(list))
	copy(stored, list)
	h.repo.data[h.scope][key] = stored

	return nil
}

// Refresh only checks the handle. Scopes held in memory do not expire.
func (h *handle) Refresh(ctx context.Context) error {
	h.repo.mu.RLock()
	defer h.repo.mu.RUnlock()

	if h.released {
		return kv.ErrReleased
	}

	return nil
}

func (h *handle) Release(ctx context.Context) error {
	h.repo.mu.Lock()
	defer h.repo.mu.Unlock()

	if h.released {
		return kv.ErrReleased
	}

	h.released = true
	delete(h.repo.held, h.scope)

	slog.DebugContext(ctx, "kv.inmemory.Release", "scope", h.scope)
	return nil
}
