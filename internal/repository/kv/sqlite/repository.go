package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_items (
	scope    TEXT    NOT NULL,
	key      TEXT    NOT NULL,
	position INTEGER NOT NULL,
	value    TEXT    NOT NULL,
	PRIMARY KEY (scope, key, position)
);
CREATE TABLE IF NOT EXISTS kv_leases (
	scope      TEXT    PRIMARY KEY,
	token      TEXT    NOT NULL,
	expires_at INTEGER NOT NULL
);`

type repo struct {
	db       *sql.DB
	leaseTTL time.Duration
	now      func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string, leaseTTL time.Duration) (*repo, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if leaseTTL <= 0 {
		leaseTTL = 10 * time.Minute
	}

	return &repo{
		db:       db,
		leaseTTL: leaseTTL,
		now:      time.Now,
	}, nil
}

func (r *repo) Acquire(ctx context.Context, scope string) (kv.Handle, error) {
	token := uuid.NewString()
	now := r.now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM kv_leases WHERE scope = ? AND expires_at <= ?`, scope, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to expire lease: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO kv_leases (scope, token, expires_at) VALUES (?, ?, ?)`,
		scope, token, now.Add(r.leaseTTL).UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "kv.sqlite.Acquire", "scope", scope, "error", kv.ErrScopeBusy)
		return nil, kv.ErrScopeBusy
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lease: %w", err)
	}

	slog.DebugContext(ctx, "kv.sqlite.Acquire", "scope", scope)
	return &handle{repo: r, scope: scope, token: token}, nil
}

func (r *repo) Close() error {
	return r.db.Close()
}

type handle struct {
	repo     *repo
	scope    string
	token    string
	released atomic.Bool
}

// refresh extends the lease inside tx and reports whether it is still held.
func (h *handle) refresh(ctx context.Context, tx *sql.Tx) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE kv_leases SET expires_at = ? WHERE scope = ? AND token = ?`,
		h.repo.now().Add(h.repo.leaseTTL).UnixMilli(), h.scope, h.token)
	if err != nil {
		return fmt.Errorf("failed to refresh lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to refresh lease: %w", err)
	}
	if n == 0 {
		return kv.ErrLeaseLost
	}

	return nil
}

func (h *handle) Get(ctx context.Context, key string) ([]string, error) {
	if h.released.Load() {
		return nil, kv.ErrReleased
	}

	tx, err := h.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := h.refresh(ctx, tx); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT value FROM kv_items WHERE scope = ? AND key = ? ORDER BY position`, h.scope, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	defer rows.Close()

	list := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	slog.DebugContext(ctx, "kv.sqlite.Get", "key", key, "len", len(list))
	return list, nil
}

func (h *handle) Set(ctx context.Context, key string, list []string) error {
	if h.released.Load() {
		return kv.ErrReleased
	}

	tx, err := h.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := h.refresh(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM kv_items WHERE scope = ? AND key = ?`, h.scope, key); err != nil {
		return fmt.Errorf("failed to clear list: %w", err)
	}

	for i, v := range list {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv_items (scope, key, position, value) VALUES (?, ?, ?, ?)`,
			h.scope, key, i, v); err != nil {
			return fmt.Errorf("failed to insert list item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list: %w", err)
	}

	slog.DebugContext(ctx, "kv.sqlite.Set", "key", key, "len", len(list))
	return nil
}

func (h *handle) Refresh(ctx context.Context) error {
	if h.released.Load() {
		return kv.ErrReleased
	}

	tx, err := h.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := h.refresh(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lease: %w", err)
	}

	slog.DebugContext(ctx, "kv.sqlite.Refresh", "scope", h.scope)
	return nil
}

func (h *handle) Release(ctx context.Context) error {
	if !h.released.CompareAndSwap(false, true) {
		return kv.ErrReleased
	}

	if _, err := h.repo.db.ExecContext(ctx,
		`DELETE FROM kv_leases WHERE scope = ? AND token = ?`, h.scope, h.token); err != nil {
		return fmt.Errorf("failed to release scope: %w", err)
	}

	slog.DebugContext(ctx, "kv.sqlite.Release", "scope", h.scope)
	return nil
}
