// Package service implements the JSON REST API of the costing service.
package service

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stemlabtz/stemquote/internal/auth"
	"github.com/stemlabtz/stemquote/internal/mailer"
	"github.com/stemlabtz/stemquote/internal/middleware"
	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

// Service holds the shared dependencies of all HTTP handlers.
type Service struct {
	store       storage.Store
	jwt         *auth.JWTManager
	passwords   *auth.PasswordAuthenticator
	mailer      *mailer.Mailer
	logger      *slog.Logger
	frontendURL string
}

// New creates the service with its dependencies wired in.
func New(store storage.Store, jwt *auth.JWTManager, passwords *auth.PasswordAuthenticator, m *mailer.Mailer, logger *slog.Logger, frontendURL string) *Service {
	return &Service{
		store:       store,
		jwt:         jwt,
		passwords:   passwords,
		mailer:      m,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// Router builds the chi router with the full API surface mounted under /api.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Metrics)

	authn := middleware.RequireAuth(s.jwt, s.unauthorized)
	adminOnly := middleware.RequireRole(s.forbidden, models.RoleAdmin)
	editors := middleware.RequireRole(s.forbidden, models.RoleAdmin, models.RoleCurator)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)
			r.With(authn).Get("/me", s.handleMe)
		})

		r.Route("/materials", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", s.handleListMaterials)
			r.With(editors).Post("/", s.handleCreateMaterial)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMaterial)
				r.Get("/history", s.handleMaterialHistory)
				r.With(editors).Put("/", s.handleUpdateMaterial)
				r.With(adminOnly).Delete("/", s.handleArchiveMaterial)
			})
		})

		r.Route("/activities", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", s.handleListActivities)
			r.With(editors).Post("/", s.handleCreateActivity)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetActivity)
				r.With(editors).Put("/", s.handleUpdateActivity)
				r.With(adminOnly).Patch("/lock", s.handleLockActivity)
				r.With(adminOnly).Delete("/", s.handleArchiveActivity)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Put("/", s.handleUpdateSession)
				r.Delete("/", s.handleDeleteSession)
				r.Patch("/submit", s.handleSubmitSession)
				r.With(adminOnly).Patch("/approve", s.handleApproveSession)
				r.With(adminOnly).Patch("/reject", s.handleRejectSession)
				r.Get("/quote", s.handleQuoteSession)
				r.Get("/export", s.handleExportSession)
			})
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Use(authn)
			r.With(adminOnly).Post("/{sessionID}", s.handleIssueInvoice)
			r.Get("/{sessionID}", s.handleGetInvoice)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn, adminOnly)
			r.Get("/users", s.handleListUsers)
			r.Patch("/users/{id}/role", s.handleUpdateUserRole)
			r.Delete("/users/{id}", s.handleDeleteUser)
			r.Get("/sessions/pending", s.handlePendingSessions)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/materials/categories", s.handleMaterialCategories)
		})
	})

	return r
}
