package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	contacthandler "callerlens/internal/contact/handler"
	healthhandler "callerlens/internal/health/handler"
	searchhandler "callerlens/internal/search/handler"
	"callerlens/internal/security"
	"callerlens/internal/server/middleware"
	spamhandler "callerlens/internal/spam/handler"
	userhandler "callerlens/internal/user/handler"
	userrepo "callerlens/internal/user/repository"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger   *zap.Logger
	Tokens   *security.TokenProvider
	Users    userrepo.Repository
	User     *userhandler.HTTP
	Contacts *contacthandler.HTTP
	Spam     *spamhandler.HTTP
	Search   *searchhandler.HTTP
	Health   *healthhandler.HTTP
}

// NewRouter assembles the full HTTP API.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Telemetry())
	r.Use(chimw.Recoverer)

	r.Get("/health", d.Health.Handle)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			d.User.PublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(d.Tokens, d.Users, d.Logger))
				d.User.ProtectedRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Tokens, d.Users, d.Logger))
			r.Route("/contacts", d.Contacts.Routes)
			r.Route("/spam", d.Spam.Routes)
			r.Route("/search", d.Search.Routes)
		})
	})

	return r
}
