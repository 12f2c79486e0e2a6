package controller

import (
	"context"

	"github.com/val-x/Val-X-Site-sub002/internal/surface"
)

type contextKey int

const (
	sessionIdCtxKey contextKey = iota
	surfaceIdCtxKey
	surfaceKindCtxKey
)

func (c controller) getSessionIdFromCtx(ctx context.Context) string {
	sessionId, ok := ctx.Value(sessionIdCtxKey).(string)
	if !ok {
		return ""
	}

	return sessionId
}

func (c controller) getSurfaceIdFromCtx(ctx context.Context) string {
	surfaceId, ok := ctx.Value(surfaceIdCtxKey).(string)
	if !ok {
		return ""
	}

	return surfaceId
}

func (c controller) getSurfaceKindFromCtx(ctx context.Context) surface.Kind {
	kind, ok := ctx.Value(surfaceKindCtxKey).(surface.Kind)
	if !ok {
		return ""
	}

	return kind
}
