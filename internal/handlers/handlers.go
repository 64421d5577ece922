// Package handlers implements the HTTP surface of the API.
package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/mwhitford/skylog/internal/auth"
	"github.com/mwhitford/skylog/internal/lifecycle"
	"github.com/mwhitford/skylog/internal/media"
	"github.com/mwhitford/skylog/internal/store"
)

type Handler struct {
	store     store.Store
	life      *lifecycle.Manager
	media     media.Store
	tokens    *auth.Tokens
	log       zerolog.Logger
	publicURL string
}

func New(s store.Store, life *lifecycle.Manager, m media.Store, tokens *auth.Tokens, publicURL string, log zerolog.Logger) *Handler {
	return &Handler{
		store:     s,
		life:      life,
		media:     m,
		tokens:    tokens,
		log:       log,
		publicURL: publicURL,
	}
}

// Routes mounts every endpoint. Registration and login are open; everything
// else requires a bearer token, and reference-data creation additionally
// requires the admin role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.tokens.Middleware)
		r.Use(httprate.Limit(
			60,
			1*time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		))

		r.Post("/photos", h.CreatePhoto)
		r.Get("/photos", h.ListPhotos)
		r.Get("/photos/{id}", h.GetPhoto)
		r.Put("/photos/{id}", h.UpdatePhoto)
		r.Delete("/photos/{id}", h.DeletePhoto)

		r.Get("/airports", h.ListAirports)
		r.Get("/airports/{code}", h.GetAirport)
		r.Get("/airlines", h.ListAirlines)
		r.Get("/aircraft-types", h.ListAircraftTypes)

		r.Get("/aircraft/search", h.SearchAircraft)
		r.Get("/aircraft/random", h.RandomAircraft)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/recent-airports", h.statsHandler(h.store.RecentAirportsByUser))
			r.Get("/airlines", h.statsHandler(h.store.AirlineCountsByUser))
			r.Get("/airports", h.statsHandler(h.store.AirportCountsByUser))
			r.Get("/aircraft", h.statsHandler(h.store.AirplaneCountsByUser))
			r.Get("/manufacturers", h.statsHandler(h.store.ManufacturerCountsByUser))
			r.Get("/most-seen", h.statsHandler(h.store.MostSeenAircraftByUser))
			r.Get("/years", h.PhotoYears)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/airports", h.CreateAirport)
			r.Post("/aircraft-types", h.CreateAircraftType)
		})
	})

	return r
}
