// Package server assembles the HTTP routes of the events API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ms-events/internal/auth"
	"ms-events/internal/auth/auth_api"
	"ms-events/internal/events/event_api"
	"ms-events/internal/logger"
	"ms-events/internal/middleware"
	"ms-events/internal/users/user_api"
	"ms-events/internal/utils"
)

type Deps struct {
	Auth        *auth.Service
	AuthHandler *auth_api.Handler
	UserHandler *user_api.Handler
	Events      *event_api.Handler
	RateLimiter *middleware.RateLimiter
	Logger      *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, "OK", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Middleware(middleware.ClientIPAndPath))
			}
			r.Post("/users/register", d.UserHandler.Register)
			r.Post("/auth/login", d.AuthHandler.Login)
		})

		r.Mount("/events", d.Events.Routes(auth.Middleware(d.Auth, d.Logger)))
	})

	return r
}
