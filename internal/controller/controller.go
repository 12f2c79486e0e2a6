package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/val-x/Val-X-Site-sub002/internal/service/session"
	sess "github.com/val-x/Val-X-Site-sub002/internal/session"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
	"github.com/val-x/Val-X-Site-sub002/pkg/validator"
)

type iSessionService interface {
	Create(context.Context, sess.Options) (session.CreateResponse, error)
	Get(string) (*session.Live, error)
	Snapshot(context.Context, string) (surface.Snapshot, error)
	Delete(context.Context, string) error
	Authorize(sessionId, token string, role session.Role) error
	AttachHost(string, *websocket.Conn) (*session.Live, error)
	DetachHost(*websocket.Conn)
}

type Config struct {
	// CreateRateLimit is the number of sessions one client address may create per
	// minute.
	CreateRateLimit int
	// MessageRate and MessageBurst bound inbound websocket messages per connection.
	MessageRate  float64
	MessageBurst int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

type controller struct {
	sessionService iSessionService
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
	cfg            Config
}

func NewController(sessionService iSessionService, cfg Config, logger *slog.Logger) *controller {
	if cfg.CreateRateLimit <= 0 {
		cfg.CreateRateLimit = 30
	}
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = 60
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 120
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessionService: sessionService,
		validate:       validator.NewValidator(),
		logger:         logger,
		cfg:            cfg,
	}
}
