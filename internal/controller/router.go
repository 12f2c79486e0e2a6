package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.With(httprate.LimitByIP(c.cfg.CreateRateLimit, time.Minute)).Post("/", c.createSession)
		r.Route("/{session-id}", func(r chi.Router) {
			r.Get("/", c.getSession)
			r.Delete("/", c.deleteSession)
		})
	})

	r.Route("/ws/sessions/{session-id}", func(r chi.Router) {
		r.Get("/host", c.connectHost)
		r.Get("/surfaces/{kind}", c.connectSurface)
	})

	return r
}
