package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/val-x/Val-X-Site-sub002/internal/media/remote"
	"github.com/val-x/Val-X-Site-sub002/internal/metrics"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/connection"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
	sess "github.com/val-x/Val-X-Site-sub002/internal/session"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
)

type CreateResponse struct {
	SessionID    string `json:"session_id"`
	HostToken    string `json:"host_token"`
	SurfaceToken string `json:"surface_token"`
}

func (s *service) Create(ctx context.Context, opts sess.Options) (CreateResponse, error) {
	if err := s.checkCapacity(); err != nil {
		return CreateResponse{}, err
	}

	id := uuid.NewString()

	var (
		handle kv.Handle
		deps   sess.Deps
	)
	if opts.Profile != "" && s.backend != nil {
		h, err := s.backend.Acquire(ctx, "profile:"+opts.Profile)
		if err != nil {
			return CreateResponse{}, fmt.Errorf("failed to acquire library scope: %w", err)
		}
		handle = h
		deps.Store = h
	}

	outbox := remote.NewOutbox(s.cfg.OutboxSize)
	host := remote.NewHost(outbox, s.cfg.CapabilityTimeout, s.log.With("session_id", id))
	deps.Primitive = host
	deps.Platform = host
	deps.Network = host
	deps.Chrome = host
	if s.auxiliary != nil {
		if aux := s.auxiliary(); aux != nil {
			deps.Auxiliary = aux
		}
	}

	ps, err := sess.New(id, opts, s.cfg.Session, deps, s.log)
	if err != nil {
		s.release(handle)
		return CreateResponse{}, fmt.Errorf("failed to create session: %w", err)
	}

	hostToken, err := s.generateJWT(id, RoleHost)
	if err == nil {
		var surfaceToken string
		surfaceToken, err = s.generateJWT(id, RoleSurface)
		if err == nil {
			live := &Live{
				ID:        id,
				Session:   ps,
				Host:      host,
				Outbox:    outbox,
				CreatedAt: s.now(),
				handle:    handle,
			}
			if err = s.register(live); err == nil {
				ps.Start()
				metrics.SessionsActive.Inc()
				s.log.InfoContext(ctx, "session created", "session_id", id, "profile", opts.Profile)

				return CreateResponse{
					SessionID:    id,
					HostToken:    hostToken,
					SurfaceToken: surfaceToken,
				}, nil
			}
		}
	}

	ps.Close()
	host.Close()
	s.release(handle)
	return CreateResponse{}, err
}

func (s *service) checkCapacity() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return ErrSessionLimit
	}

	return nil
}

func (s *service) register(live *Live) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return ErrSessionLimit
	}

	s.sessions[live.ID] = live
	return nil
}

func (s *service) Get(id string) (*Live, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return live, nil
}

// Snapshot returns the latest state of a session after its pending work ran.
func (s *service) Snapshot(ctx context.Context, id string) (surface.Snapshot, error) {
	live, err := s.Get(id)
	if err != nil {
		return surface.Snapshot{}, err
	}

	if err := live.Session.Do(ctx, func() {}); err != nil {
		if errors.Is(err, sess.ErrClosed) {
			return surface.Snapshot{}, ErrSessionNotFound
		}
		return surface.Snapshot{}, err
	}

	snap, ok := live.Session.Snapshot()
	if !ok {
		return surface.Snapshot{}, ErrSessionNotFound
	}

	return snap, nil
}

func (s *service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	live, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.log.InfoContext(ctx, "deleting session", "session_id", id)
	s.teardown(live)
	return nil
}

func (s *service) teardown(live *Live) {
	live.Session.Close()
	live.Host.Close()

	if conn, err := s.connRepo.RemoveBySessionID(live.ID); err == nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	s.release(live.handle)
	metrics.SessionsActive.Dec()
}

func (s *service) release(handle kv.Handle) {
	if handle == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := handle.Release(ctx); err != nil {
		s.log.Warn("failed to release library scope", "error", err)
	}
}

// AttachHost binds the host websocket of a session. A session has at most one host.
func (s *service) AttachHost(id string, conn *websocket.Conn) (*Live, error) {
	live, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if err := s.connRepo.Add(conn, id); err != nil {
		if errors.Is(err, connection.ErrAlreadyExists) {
			return nil, ErrHostAttached
		}
		return nil, err
	}

	live.Session.Touch()
	return live, nil
}

func (s *service) DetachHost(conn *websocket.Conn) {
	if id, err := s.connRepo.RemoveByConn(conn); err == nil {
		s.log.Info("host detached", "session_id", id)
	}
}

// Reap tears down sessions that ended on their own, and sessions with neither a
// host nor a surface that have been idle longer than the idle timeout. The library
// scopes of the surviving sessions are refreshed.
func (s *service) Reap() int {
	s.mu.Lock()
	var dead, alive []*Live
	for id, live := range s.sessions {
		if !s.expired(live) {
			if live.handle != nil {
				alive = append(alive, live)
			}
			continue
		}
		delete(s.sessions, id)
		dead = append(dead, live)
	}
	s.mu.Unlock()

	for _, live := range dead {
		s.log.Info("reaping session", "session_id", live.ID)
		s.teardown(live)
	}

	for _, live := range alive {
		s.refresh(live)
	}

	return len(dead)
}

func (s *service) refresh(live *Live) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := live.handle.Refresh(ctx)
	switch {
	case err == nil, errors.Is(err, kv.ErrReleased):
	case errors.Is(err, kv.ErrLeaseLost):
		metrics.LeasesLost.Inc()
		s.log.Warn("library scope taken over", "session_id", live.ID)
	default:
		s.log.Warn("failed to refresh library scope", "session_id", live.ID, "error", err)
	}
}

func (s *service) expired(live *Live) bool {
	select {
	case <-live.Session.Done():
		return true
	default:
	}

	if _, err := s.connRepo.GetConn(live.ID); err == nil {
		return false
	}
	if len(live.Session.Mounted()) > 0 {
		return false
	}

	return live.Session.Idle() >= s.cfg.IdleTimeout
}

// Run reaps periodically until ctx is done, then closes every session.
func (s *service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return nil
		case <-ticker.C:
			s.Reap()
		}
	}
}

func (s *service) CloseAll() {
	s.mu.Lock()
	s.closed = true
	all := s.sessions
	s.sessions = make(map[string]*Live)
	s.mu.Unlock()

	for _, live := range all {
		s.teardown(live)
	}
}
