package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Group(func(r chi.Router) {
			r.Use(c.authMw)

			r.Get("/ws", c.serveWs)
			r.Post("/rooms", c.createRoom)
			r.Route("/rooms/{room-id}", func(r chi.Router) {
				r.Get("/", c.getRoom)
				r.Post("/join", c.joinRoom)
				r.Get("/participants", c.listParticipants)
				r.Route("/tracks", func(r chi.Router) {
					r.Get("/", c.listTracks)
					r.Post("/", c.addTrack)
					r.Route("/{track-id}", func(r chi.Router) {
						r.Post("/vote", c.toggleVote)
						r.Patch("/mark-played", c.markPlayed)
					})
				})
			})
		})
	})

	return r
}
