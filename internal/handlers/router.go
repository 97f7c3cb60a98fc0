package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/metrics"
	"github.com/testforge/suite-service/internal/middleware"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/shell"
)

// RouterConfig carries everything the routes are built from
type RouterConfig struct {
	Version     string
	Variant     string
	Auth        *auth.Authenticator
	Suites      *service.Suites
	Cases       *service.Cases
	Preferences *shell.Preferences
	Pages       *Pages
	Limiter     *middleware.PerUserRateLimiter
	Cookie      auth.CookieOptions
	CORSOrigins []string
}

// NewRouter builds the HTTP handler of the service
func NewRouter(cfg RouterConfig) http.Handler {
	healthHandler := NewHealthHandler(cfg.Version, cfg.Variant)
	pageHandler := NewPageHandler(cfg.Preferences, cfg.Pages)
	authHandler := NewAuthHandler(cfg.Auth, cfg.Pages, cfg.Cookie)
	wizardHandler := NewWizardHandler(cfg.Pages)
	dashboardHandler := NewDashboardHandler(cfg.Pages)
	suitesHandler := NewSuitesHandler(cfg.Suites, cfg.Cases)
	prefsHandler := NewPreferencesHandler(cfg.Preferences, cfg.Pages)

	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.Metrics)
	r.Use(auth.Middleware(cfg.Auth))

	// Unauthenticated endpoints
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/icons/{name}.svg", Icon)

	// Pages
	r.Get(shell.PathHome, pageHandler.Home)
	r.Get(shell.PathLogin, pageHandler.Login)
	r.Get(shell.PathSignup, pageHandler.Signup)
	r.Get(shell.PathCallback, pageHandler.Callback)
	r.Get(shell.PathError, pageHandler.Error)
	r.Get(shell.PathDashboard, pageHandler.Dashboard)
	r.NotFound(pageHandler.NotFound)

	// Forms
	r.Post(shell.PathLogin, authHandler.Login)
	r.Post(shell.PathSignup, authHandler.Signup)
	r.Post("/logout", authHandler.Logout)
	r.Post("/dark-mode", pageHandler.ToggleDarkMode)
	r.Post(shell.PathDashboard+"/suites/{id}/delete", pageHandler.DeleteSuite)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireUser)
		if cfg.Limiter != nil {
			r.Use(middleware.RateLimitMiddleware(cfg.Limiter))
		}

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", wizardHandler.Get)
			r.Post("/", wizardHandler.Update)
			r.Post("/next", wizardHandler.Next)
			r.Post("/previous", wizardHandler.Previous)
			r.Post("/submit", wizardHandler.Submit)
			r.Post("/cases", wizardHandler.AddCase)
			r.Patch("/cases/{id}", wizardHandler.UpdateCase)
			r.Delete("/cases/{id}", wizardHandler.RemoveCase)
			r.Post("/cases/{id}/run", wizardHandler.RunCase)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler.Get)
			r.Post("/reload", dashboardHandler.Reload)
			r.Delete("/suites/{id}", dashboardHandler.Delete)
		})

		r.Route("/suites", func(r chi.Router) {
			r.Get("/", suitesHandler.List)
			r.Post("/", suitesHandler.Create)
			r.Get("/{id}", suitesHandler.Get)
			r.Put("/{id}", suitesHandler.Update)
			r.Delete("/{id}", suitesHandler.Delete)
			r.Get("/{id}/cases", suitesHandler.ListCases)
			r.Post("/{id}/cases", suitesHandler.CreateCase)
		})

		r.Route("/cases/{id}", func(r chi.Router) {
			r.Get("/", suitesHandler.GetCase)
			r.Put("/", suitesHandler.UpdateCase)
			r.Delete("/", suitesHandler.DeleteCase)
		})

		r.Get("/preferences", prefsHandler.Get)
		r.Post("/preferences/dark-mode/toggle", prefsHandler.ToggleDarkMode)
		r.Get("/notifications", prefsHandler.Notifications)
		r.Get("/session", prefsHandler.Session)
	})

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}
