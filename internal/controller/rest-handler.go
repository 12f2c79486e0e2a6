package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/val-x/Val-X-Site-sub002/internal/chapter"
	"github.com/val-x/Val-X-Site-sub002/internal/playlist"
	"github.com/val-x/Val-X-Site-sub002/internal/repository/kv"
	"github.com/val-x/Val-X-Site-sub002/internal/service/session"
	sess "github.com/val-x/Val-X-Site-sub002/internal/session"
)

func (c controller) createSession(w http.ResponseWriter, r *http.Request) {
	var req sess.Options
	if err := c.readJSON(w, r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read create session request", "error", err)
		c.writeJSON(w, http.StatusUnprocessableEntity, envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(r.Context(), "invalid create session request", "errors", validationErrors)
		c.writeJSON(w, http.StatusBadRequest, envelope{"errors": validationErrors})
		return
	}

	resp, err := c.sessionService.Create(r.Context(), req)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to create session", "error", err)
		c.writeJSON(w, createErrorStatus(err), envelope{"error": err.Error()})
		return
	}

	c.writeJSON(w, http.StatusCreated, envelope{"data": resp})
}

func createErrorStatus(err error) int {
	switch {
	case errors.Is(err, sess.ErrNoSource),
		errors.Is(err, chapter.ErrUnordered),
		errors.Is(err, chapter.ErrDuplicateID),
		errors.Is(err, chapter.ErrNegative),
		errors.Is(err, playlist.ErrNavigationOutOfRange),
		errors.Is(err, playlist.ErrDuplicateEntry):
		return http.StatusBadRequest
	case errors.Is(err, kv.ErrScopeBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionLimit), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// authorize checks the bearer token of a REST request against the surface role.
func (c controller) authorize(r *http.Request, sessionId string) error {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return c.sessionService.Authorize(sessionId, token, session.RoleSurface)
}

func (c controller) getSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")
	if err := c.authorize(r, sessionId); err != nil {
		c.writeJSON(w, http.StatusUnauthorized, envelope{"error": "unauthorized"})
		return
	}

	snap, err := c.sessionService.Snapshot(r.Context(), sessionId)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.writeJSON(w, http.StatusNotFound, envelope{"error": err.Error()})
			return
		}

		c.logger.WarnContext(r.Context(), "failed to get snapshot", "session_id", sessionId, "error", err)
		c.writeJSON(w, http.StatusInternalServerError, envelope{"error": err.Error()})
		return
	}

	c.writeJSON(w, http.StatusOK, envelope{"data": snap})
}

func (c controller) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")
	if err := c.authorize(r, sessionId); err != nil {
		c.writeJSON(w, http.StatusUnauthorized, envelope{"error": "unauthorized"})
		return
	}

	if err := c.sessionService.Delete(r.Context(), sessionId); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.writeJSON(w, http.StatusNotFound, envelope{"error": err.Error()})
			return
		}

		c.writeJSON(w, http.StatusInternalServerError, envelope{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
