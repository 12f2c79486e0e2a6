package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/val-x/Val-X-Site-sub002/internal/controller"
	"github.com/val-x/Val-X-Site-sub002/internal/preview"
	"github.com/val-x/Val-X-Site-sub002/internal/preview/ffmpeg"
	connRepo "github.com/val-x/Val-X-Site-sub002/internal/repository/connection/inmemory"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
	kvInmemory "github.com/val-x/Val-X-Site-sub002/internal/repository/kv/inmemory"
	kvRedis "github.com/val-x/Val-X-Site-sub002/internal/repository/kv/redis"
	kvSqlite "github.com/val-x/Val-X-Site-sub002/internal/repository/kv/sqlite"
	"github.com/val-x/Val-X-Site-sub002/internal/service/session"
	sess "github.com/val-x/Val-X-Site-sub002/internal/session"
	"github.com/val-x/Val-X-Site-sub002/pkg/ctxlogger"
	"github.com/val-x/Val-X-Site-sub002/pkg/redisclient"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	Secret          string        `json:"-"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	LogLevel        string        `json:"log_level"`
	Store           string        `json:"store"`
	SQLitePath      string        `json:"sqlite_path"`
	LeaseTTL        time.Duration `json:"lease_ttl"`
	RedisPort       int           `json:"redis_port"`
	RedisHost       string        `json:"redis_host"`
	RedisPassword   string        `json:"-"`
	MaxSessions     int           `json:"max_sessions"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ReapInterval    time.Duration `json:"reap_interval"`
	TickInterval    time.Duration `json:"tick_interval"`
	ChromeHideDelay time.Duration `json:"chrome_hide_delay"`
	DefaultQuality  string        `json:"default_quality"`
	FFmpegPath      string        `json:"ffmpeg_path"`
	PreviewWidth    int           `json:"preview_width"`
	CreateRateLimit int           `json:"create_rate_limit"`
	MessageRate     float64       `json:"message_rate"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	switch cfg.Store {
	case StoreMemory, StoreRedis:
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite path must be set for the sqlite store")
		}
	default:
		return fmt.Errorf("store must be one of %s, %s, %s", StoreMemory, StoreRedis, StoreSQLite)
	}
	if cfg.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be greater than 0")
	}
	if cfg.TickInterval <= 0 || cfg.TickInterval > time.Second {
		return fmt.Errorf("tick interval must be in (0, 1s]")
	}
	if cfg.ReapInterval <= 0 {
		return fmt.Errorf("reap interval must be greater than 0")
	}
	// The reaper keeps library leases alive.
	if cfg.Store != StoreMemory && cfg.LeaseTTL > 0 && cfg.ReapInterval >= cfg.LeaseTTL {
		return fmt.Errorf("reap interval must be shorter than the lease ttl")
	}
	if cfg.PreviewWidth < 0 {
		return fmt.Errorf("preview width must not be negative")
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func openBackend(ctx context.Context, cfg *AppConfig) (kv.Backend, error) {
	switch cfg.Store {
	case StoreRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		return kvRedis.NewRepo(rc, cfg.LeaseTTL), nil
	case StoreSQLite:
		repo, err := kvSqlite.Open(ctx, cfg.SQLitePath, cfg.LeaseTTL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return kvInmemory.NewRepo(), nil
	}
}

// auxiliaryFactory returns nil when no ffmpeg binary is available, which disables
// scrub previews.
func auxiliaryFactory(path string, logger *slog.Logger) session.AuxiliaryFactory {
	if path == "" {
		return nil
	}

	if _, err := ffmpeg.NewExtractor(path); err != nil {
		logger.Warn("scrub previews disabled", "error", err)
		return nil
	}

	return func() preview.Surface {
		e, err := ffmpeg.NewExtractor(path)
		if err != nil {
			return nil
		}
		return e
	}
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessionService := session.New(backend, connRepo.NewRepo(), auxiliaryFactory(cfg.FFmpegPath, logger), &session.Config{
		Secret:      cfg.Secret,
		MaxSessions: cfg.MaxSessions,
		IdleTimeout: cfg.IdleTimeout,
		Session: sess.Config{
			Tick:           cfg.TickInterval,
			HideDelay:      cfg.ChromeHideDelay,
			DefaultQuality: cfg.DefaultQuality,
			Preview:        preview.Config{Width: cfg.PreviewWidth},
		},
	}, logger)

	controller := controller.NewController(sessionService, controller.Config{
		CreateRateLimit: cfg.CreateRateLimit,
		MessageRate:     cfg.MessageRate,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           controller.GetMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sessionService.Run(gctx, cfg.ReapInterval)
	})
	g.Go(func() error {
		logger.InfoContext(gctx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
