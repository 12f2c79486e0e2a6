package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
)

// Lists live under kv:<scope>:<key>. A scope is held through a lease key whose
// value is the holder token.
var (
	setScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) ~= ARGV[1] then
			return 0
		end
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
		redis.call('DEL', KEYS[2])
		if #ARGV > 2 then
			redis.call('RPUSH', KEYS[2], unpack(ARGV, 3))
		end
		return 1
	`)

	releaseScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`)

	refreshScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('PEXPIRE', KEYS[1], ARGV[2])
		end
		return 0
	`)
)

type repo struct {
	rc       *redis.Client
	leaseTTL time.Duration
}

func NewRepo(rc *redis.Client, leaseTTL time.Duration) *repo {
	if leaseTTL <= 0 {
		leaseTTL = 10 * time.Minute
	}

	return &repo{
		rc:       rc,
		leaseTTL: leaseTTL,
	}
}

func (r *repo) getLeaseKey(scope string) string {
	return "kv-lease:" + scope
}

func (r *repo) getListKey(scope, key string) string {
	return "kv:" + scope + ":" + key
}

func (r *repo) Acquire(ctx context.Context, scope string) (kv.Handle, error) {
	token := uuid.NewString()

	ok, err := r.rc.SetNX(ctx, r.getLeaseKey(scope), token, r.leaseTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "kv.redis.Acquire", "scope", scope, "error", kv.ErrScopeBusy)
		return nil, kv.ErrScopeBusy
	}

	slog.DebugContext(ctx, "kv.redis.Acquire", "scope", scope)
	return &handle{repo: r, scope: scope, token: token}, nil
}

func (r *repo) Close() error {
	return r.rc.Close()
}

type handle struct {
	repo     *repo
	scope    string
	token    string
	released atomic.Bool
}

func (h *handle) ttl() int64 {
	return h.repo.leaseTTL.Milliseconds()
}

func (h *handle) refresh(ctx context.Context) error {
	held, err := refreshScript.Run(ctx, h.repo.rc, []string{h.repo.getLeaseKey(h.scope)}, h.token, h.ttl()).Int()
	if err != nil {
		return fmt.Errorf("failed to refresh lease: %w", err)
	}
	if held == 0 {
		return kv.ErrLeaseLost
	}

	return nil
}

func (h *handle) Refresh(ctx context.Context) error {
	if h.released.Load() {
		return kv.ErrReleased
	}

	if err := h.refresh(ctx); err != nil {
		return err
	}

	slog.DebugContext(ctx, "kv.redis.Refresh", "scope", h.scope)
	return nil
}

func (h *handle) Get(ctx context.Context, key string) ([]string, error) {
	if h.released.Load() {
		return nil, kv.ErrReleased
	}

	if err := h.refresh(ctx); err != nil {
		return nil, err
	}

	list, err := h.repo.rc.LRange(ctx, h.repo.getListKey(h.scope, key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	slog.DebugContext(ctx, "kv.redis.Get", "key", key, "len", len(list))
	return list, nil
}

func (h *handle) Set(ctx context.Context, key string, list []string) error {
	if h.released.Load() {
		return kv.ErrReleased
	}

	args := make([]interface{}, 0, len(list)+2)
	args = append(args, h.token, h.ttl())
	for _, item := range list {
		args = append(args, item)
	}

	keys := []string{h.repo.getLeaseKey(h.scope), h.repo.getListKey(h.scope, key)}
	res, err := setScript.Run(ctx, h.repo.rc, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to set list: %w", err)
	}
	if res == 0 {
		return kv.ErrLeaseLost
	}

	slog.DebugContext(ctx, "kv.redis.Set", "key", key, "len", len(list))
	return nil
}

func (h *handle) Release(ctx context.Context) error {
	if !h.released.CompareAndSwap(false, true) {
		return kv.ErrReleased
	}

	if err := releaseScript.Run(ctx, h.repo.rc, []string{h.repo.getLeaseKey(h.scope)}, h.token).Err(); err != nil {
		return fmt.Errorf("failed to release scope: %w", err)
	}

	slog.DebugContext(ctx, "kv.redis.Release", "scope", h.scope)
	return nil
}
