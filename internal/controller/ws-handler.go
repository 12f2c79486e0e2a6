package controller

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/val-x/Val-X-Site-sub002/internal/metrics"
	"github.com/val-x/Val-X-Site-sub002/internal/service/session"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
	"github.com/val-x/Val-X-Site-sub002/pkg/ctxlogger"
)

const (
	TypeSnapshot = "SNAPSHOT"
	TypeMounted  = "MOUNTED"
	TypeError    = "ERROR"
	TypeIntent   = "INTENT"
)

const (
	closeRejected  = 4001
	maxMessageSize = 64 << 10
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) writeOutput(conn *websocket.Conn, output *Output) error {
	data, err := json.Marshal(output)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c controller) writeClose(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(c.cfg.WriteTimeout),
	)
}

// keepalive expects a pong within two ping intervals.
func (c controller) keepalive(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	wait := 2 * c.cfg.PingInterval
	conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
}

func (c controller) ping(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
}

func (c controller) authorizeWS(w http.ResponseWriter, r *http.Request, role session.Role) (string, bool) {
	sessionId := chi.URLParam(r, "session-id")

	token, err := c.getQueryParam(r, "token")
	if err != nil {
		c.writeJSON(w, http.StatusUnauthorized, envelope{"error": err.Error()})
		return "", false
	}

	if err := c.sessionService.Authorize(sessionId, token, role); err != nil {
		c.logger.InfoContext(r.Context(), "rejected websocket", "role", role, "error", err)
		c.writeJSON(w, http.StatusUnauthorized, envelope{"error": "unauthorized"})
		return "", false
	}

	return sessionId, true
}

func (c controller) connectHost(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := c.authorizeWS(w, r, session.RoleHost)
	if !ok {
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	live, err := c.sessionService.AttachHost(sessionId, conn)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to attach host", "session_id", sessionId, "error", err)
		c.writeClose(conn, closeRejected, err.Error())
		return
	}
	defer c.sessionService.DetachHost(conn)

	ctx := context.WithValue(r.Context(), sessionIdCtxKey, sessionId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("session_id", sessionId))
	c.logger.InfoContext(ctx, "host connected")

	c.keepalive(conn)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer conn.Close()
		return c.hostWritePump(gctx, conn, live)
	})
	g.Go(func() error {
		return c.getHostRouter(live).ServeConn(gctx, conn)
	})

	if err := g.Wait(); err != nil && !isClosure(err) {
		c.logger.InfoContext(ctx, "host connection ended", "error", err)
		return
	}

	c.logger.InfoContext(ctx, "host disconnected")
}

// hostWritePump forwards queued media commands and capability requests.
func (c controller) hostWritePump(ctx context.Context, conn *websocket.Conn, live *session.Live) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-live.Session.Done():
			c.writeClose(conn, websocket.CloseNormalClosure, "session ended")
			return nil
		case msg := <-live.Outbox.C():
			if err := c.writeOutput(conn, &Output{Type: msg.Type, Payload: msg.Payload}); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.ping(conn); err != nil {
				return err
			}
		}
	}
}

func (c controller) connectSurface(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := c.authorizeWS(w, r, session.RoleSurface)
	if !ok {
		return
	}

	kind, err := surface.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		c.writeJSON(w, http.StatusBadRequest, envelope{"error": err.Error()})
		return
	}

	live, err := c.sessionService.Get(sessionId)
	if err != nil {
		c.writeJSON(w, http.StatusNotFound, envelope{"error": err.Error()})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	sub, err := live.Session.Mount(kind)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to mount surface", "session_id", sessionId, "error", err)
		c.writeClose(conn, closeRejected, err.Error())
		return
	}
	defer live.Session.Unmount(sub.ID)

	metrics.SurfacesConnected.WithLabelValues(string(kind)).Inc()
	defer metrics.SurfacesConnected.WithLabelValues(string(kind)).Dec()

	ctx := context.WithValue(r.Context(), sessionIdCtxKey, sessionId)
	ctx = context.WithValue(ctx, surfaceIdCtxKey, sub.ID)
	ctx = context.WithValue(ctx, surfaceKindCtxKey, kind)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("session_id", sessionId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("surface_id", sub.ID))
	c.logger.InfoContext(ctx, "surface connected", "kind", kind)

	replies := make(chan Output, 8)
	reply := func(o Output) {
		select {
		case replies <- o:
		default:
			c.logger.DebugContext(ctx, "dropping surface reply", "type", o.Type)
		}
	}
	reply(Output{Type: TypeMounted, Payload: map[string]any{"surface_id": sub.ID, "kind": kind}})

	c.keepalive(conn)

	snaps := make(chan surface.Snapshot)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(snaps)
		for {
			snap, err := sub.Next(gctx)
			if err != nil {
				if errors.Is(err, surface.ErrClosed) {
					return nil
				}
				return err
			}

			select {
			case snaps <- snap:
			case <-gctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		defer conn.Close()
		return c.surfaceWritePump(gctx, conn, snaps, replies)
	})
	g.Go(func() error {
		return c.getSurfaceRouter(live, reply).ServeConn(gctx, conn)
	})

	if err := g.Wait(); err != nil && !isClosure(err) {
		c.logger.InfoContext(ctx, "surface connection ended", "error", err)
		return
	}

	c.logger.InfoContext(ctx, "surface disconnected")
}

// surfaceWritePump is the only writer of a surface connection.
func (c controller) surfaceWritePump(ctx context.Context, conn *websocket.Conn, snaps <-chan surface.Snapshot, replies <-chan Output) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				c.writeClose(conn, websocket.CloseNormalClosure, "session ended")
				return nil
			}
			if err := c.writeOutput(conn, &Output{Type: TypeSnapshot, Payload: snap}); err != nil {
				return err
			}
		case out := <-replies:
			if err := c.writeOutput(conn, &out); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.ping(conn); err != nil {
				return err
			}
		}
	}
}

func isClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed)
}
