// Package server assembles the HTTP routes of the character sheet service.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/auth"
	"github.com/jackknife/charsheet/internal/middleware"
	"github.com/jackknife/charsheet/internal/sheet"
	"github.com/jackknife/charsheet/internal/web"
)

// Deps are the handlers and stores the router wires together.
type Deps struct {
	Auth        *auth.Handler
	Sheets      *sheet.Handler
	Web         *web.Handler
	Sessions    auth.SessionStore
	CORSOrigins []string
	Log         *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	requireAuth := middleware.RequireAuth(d.Sessions, d.Log)
	optionalAuth := middleware.OptionalAuth(d.Sessions, d.Log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth
	r.Post("/login", d.Auth.Login)
	r.With(optionalAuth).Get("/whoami", d.Auth.WhoAmI)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/logout", d.Auth.Logout)
		r.Post("/change-password", d.Auth.ChangePassword)

		// Sheet persistence
		r.Post("/save", d.Sheets.Save)
		r.Get("/data", d.Sheets.Load)
	})

	// Client bundle
	r.Get("/", d.Web.Index)
	r.Get("/charactersheet", d.Web.Sheet)
	r.Get("/*", d.Web.Static)

	return r
}
