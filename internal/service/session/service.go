// Package session creates, looks up and tears down playback sessions.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/val-x/Val-X-Site-sub002/internal/media/remote"
	"github.com/val-x/Val-X-Site-sub002/internal/preview"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
	sess "github.com/val-x/Val-X-Site-sub002/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrHostAttached    = errors.New("session already has a host")
	ErrClosed          = errors.New("session service closed")
)

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByConn(*websocket.Conn) (string, error)
	RemoveBySessionID(string) (*websocket.Conn, error)
	GetConn(string) (*websocket.Conn, error)
}

// AuxiliaryFactory returns a fresh auxiliary decode surface for one session, or nil
// when previews are disabled.
type AuxiliaryFactory func() preview.Surface

type Config struct {
	Secret            string
	TokenTTL          time.Duration
	MaxSessions       int
	IdleTimeout       time.Duration
	CapabilityTimeout time.Duration
	OutboxSize        int
	Session           sess.Config
}

// Live is a running session together with its host bridge.
type Live struct {
	ID        string
	Session   *sess.Session
	Host      *remote.Host
	Outbox    *remote.Outbox
	CreatedAt time.Time

	handle kv.Handle
}

type service struct {
	backend   kv.Backend
	connRepo  iConnRepo
	auxiliary AuxiliaryFactory
	cfg       Config
	log       *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Live
	closed   bool
}

// New creates the service. backend may be nil, in which case sessions never get a
// library.
func New(backend kv.Backend, connRepo iConnRepo, auxiliary AuxiliaryFactory, cfg *Config, log *slog.Logger) *service {
	c := *cfg
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 10 * time.Minute
	}

	return &service{
		backend:   backend,
		connRepo:  connRepo,
		auxiliary: auxiliary,
		cfg:       c,
		log:       log,
		now:       time.Now,
		sessions:  make(map[string]*Live),
	}
}
