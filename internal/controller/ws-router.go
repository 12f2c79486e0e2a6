package controller

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/val-x/Val-X-Site-sub002/internal/capability"
	"github.com/val-x/Val-X-Site-sub002/internal/media/remote"
	"github.com/val-x/Val-X-Site-sub002/internal/metrics"
	"github.com/val-x/Val-X-Site-sub002/internal/quality"
	"github.com/val-x/Val-X-Site-sub002/internal/service/session"
	"github.com/val-x/Val-X-Site-sub002/internal/surface"
	"github.com/val-x/Val-X-Site-sub002/pkg/ctxlogger"
	"github.com/val-x/Val-X-Site-sub002/pkg/validator"
	"github.com/val-x/Val-X-Site-sub002/pkg/wsrouter"
)

const (
	roleHost    = "host"
	roleSurface = "surface"
)

func (c controller) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.cfg.MessageRate), c.cfg.MessageBurst)
}

// wsErrorFunc logs handler errors and forwards them to reply. Serving goes on
// after a bad message.
func (c controller) wsErrorFunc(role string, reply func(Output)) wsrouter.ErrorFunc {
	return func(ctx context.Context, messageType string, err error) error {
		if errors.Is(err, wsrouter.ErrRateLimited) {
			metrics.MessagesRateLimited.WithLabelValues(role).Inc()
			return nil
		}

		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", messageType))
		c.logger.InfoContext(ctx, "failed to handle websocket message", "error", err)

		if reply != nil {
			payload := map[string]any{"message_type": messageType, "error": err.Error()}
			var verrs validator.Errors
			if errors.As(err, &verrs) {
				payload["errors"] = verrs
			}
			reply(Output{Type: TypeError, Payload: payload})
		}

		return nil
	}
}

func (c controller) getHostRouter(live *session.Live) *wsrouter.WSRouter {
	mux := wsrouter.New(c.validate,
		wsrouter.WithLimiter(c.newLimiter()),
		wsrouter.WithErrorFunc(c.wsErrorFunc(roleHost, nil)),
	)

	// media
	wsrouter.Handle(mux, remote.TypeMediaEvent, func(_ context.Context, input remote.EventPayload) error {
		live.Session.Touch()
		live.Host.HandleMediaEvent(input)
		return nil
	})

	// environment
	wsrouter.Handle(mux, remote.TypeNetworkSample, func(_ context.Context, input quality.Sample) error {
		live.Host.HandleNetworkSample(input)
		return nil
	})
	wsrouter.Handle(mux, remote.TypeCapabilities, func(_ context.Context, input capability.Set) error {
		live.Host.HandleCapabilities(input)
		return nil
	})
	wsrouter.Handle(mux, remote.TypeCapabilityResult, func(_ context.Context, input remote.CapabilityResult) error {
		return live.Host.HandleCapabilityResult(input)
	})
	wsrouter.Handle(mux, remote.TypeFullscreenChanged, func(_ context.Context, input remote.FullscreenChanged) error {
		live.Host.HandleFullscreenChanged(input)
		return nil
	})

	return mux
}

func (c controller) getSurfaceRouter(live *session.Live, reply func(Output)) *wsrouter.WSRouter {
	mux := wsrouter.New(c.validate,
		wsrouter.WithLimiter(c.newLimiter()),
		wsrouter.WithErrorFunc(c.wsErrorFunc(roleSurface, reply)),
	)

	wsrouter.Handle(mux, TypeIntent, func(ctx context.Context, input surface.Intent) error {
		input.SurfaceID = c.getSurfaceIdFromCtx(ctx)
		input.Surface = c.getSurfaceKindFromCtx(ctx)
		return live.Session.Dispatch(ctx, input)
	})

	return mux
}
