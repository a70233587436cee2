// Package api provides the HTTP API server for the publishing portal.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/papeesearch/portal/internal/api/handlers"
	"github.com/papeesearch/portal/internal/api/health"
	"github.com/papeesearch/portal/internal/api/middleware"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
	"github.com/papeesearch/portal/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// requestTimeout bounds every request except the live feed.
const requestTimeout = 60 * time.Second

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	codec         handlers.IDCodec
	auth          *auth.Service
	rbac          *auth.RBACService
	broker        *feed.Broker
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, codec handlers.IDCodec, authSvc *auth.Service, rbac *auth.RBACService, broker *feed.Broker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  st,
		codec:  codec,
		auth:   authSvc,
		rbac:   rbac,
		broker: broker,
		config: cfg,
		logger: logger,
	}
	s.healthChecker = health.NewChecker(st, broker, Version)

	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the live feed holds connections open
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// resource describes the admin routes of one module. Nil handlers are not routed.
type resource struct {
	module models.Module
	param  string
	list   http.HandlerFunc
	create http.HandlerFunc
	get    http.HandlerFunc
	update http.HandlerFunc
	remove http.HandlerFunc
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	authHandler := handlers.NewAuthHandler(s.rbac, s.codec, s.logger)
	journalHandler := handlers.NewJournalHandler(s.store, s.codec, s.logger)
	conferenceHandler := handlers.NewConferenceHandler(s.store, s.codec, s.logger)
	templateHandler := handlers.NewTemplateHandler(s.store, s.codec, s.logger)
	manuscriptHandler := handlers.NewManuscriptHandler(s.store, s.codec, s.broker, s.logger)
	abstractHandler := handlers.NewAbstractHandler(s.store, s.codec, s.broker, s.logger)
	registrationHandler := handlers.NewRegistrationHandler(s.store, s.codec, s.broker, s.logger)
	applicantHandler := handlers.NewApplicantHandler(s.store, s.codec, s.broker, s.logger)
	subadminHandler := handlers.NewSubadminHandler(s.rbac, s.codec, s.logger)
	linkHandler := handlers.NewLinkHandler(s.store, s.codec, s.rbac, s.config.PublicBaseURL, s.logger)
	feedHandler := feed.NewHandler(s.broker, s.rbac, s.logger)

	decode := func(params ...string) func(http.Handler) http.Handler {
		return middleware.DecodeID(s.codec, params...)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		// Health check endpoint (no auth required)
		r.Get("/health", s.healthChecker.Handler())

		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Get("/setup", authHandler.SetupCheck)
			r.Post("/setup", authHandler.Setup)
			r.Post("/login", authHandler.Login)
		})

		// Public site: listings and submission forms
		r.Route("/public", func(r chi.Router) {
			r.Route("/conferences", func(r chi.Router) {
				r.Get("/", conferenceHandler.PublicList)
				r.Route("/{conferenceID}", func(r chi.Router) {
					r.Use(decode("conferenceID"))
					r.Get("/", conferenceHandler.PublicGet)
					r.Get("/templates", templateHandler.PublicList)
					r.Post("/registrations", registrationHandler.Register)
					r.Post("/abstracts", abstractHandler.Submit)
				})
			})
			r.With(decode("templateID")).Get("/templates/{templateID}", templateHandler.PublicGet)
			r.Route("/journals", func(r chi.Router) {
				r.Get("/", journalHandler.PublicList)
				r.Route("/{journalID}", func(r chi.Router) {
					r.Use(decode("journalID"))
					r.Get("/", journalHandler.PublicGet)
					r.Post("/manuscripts", manuscriptHandler.Submit)
				})
			})
			r.Post("/applicants", applicantHandler.Apply)
		})
	})

	// Back office
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		// The feed is long-lived and stays outside the request timeout.
		r.Get("/feed/ws", feedHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Get("/me", authHandler.Me)
			r.Get("/permissions/catalog", subadminHandler.Catalog)
			r.Post("/links", linkHandler.Create)

			s.mountResource(r, "/conferences", resource{
				module: models.ModuleConferences, param: "conferenceID",
				list: conferenceHandler.List, create: conferenceHandler.Create, get: conferenceHandler.Get,
				update: conferenceHandler.Update, remove: conferenceHandler.Delete,
			})
			s.mountResource(r, "/journals", resource{
				module: models.ModuleJournals, param: "journalID",
				list: journalHandler.List, create: journalHandler.Create, get: journalHandler.Get,
				update: journalHandler.Update, remove: journalHandler.Delete,
			})
			s.mountResource(r, "/templates", resource{
				module: models.ModuleTemplates, param: "templateID",
				list: templateHandler.List, create: templateHandler.Create, get: templateHandler.Get,
				update: templateHandler.Update, remove: templateHandler.Delete,
			})
			s.mountResource(r, "/manuscripts", resource{
				module: models.ModuleManuscripts, param: "manuscriptID",
				list: manuscriptHandler.List, get: manuscriptHandler.Get,
				update: manuscriptHandler.Update, remove: manuscriptHandler.Delete,
			})
			s.mountResource(r, "/abstracts", resource{
				module: models.ModuleAbstracts, param: "abstractID",
				list: abstractHandler.List, get: abstractHandler.Get,
				update: abstractHandler.Update, remove: abstractHandler.Delete,
			})
			s.mountResource(r, "/registrations", resource{
				module: models.ModuleRegistrations, param: "registrationID",
				list: registrationHandler.List, get: registrationHandler.Get,
				update: registrationHandler.Update, remove: registrationHandler.Delete,
			})
			s.mountResource(r, "/applicants", resource{
				module: models.ModuleApplicants, param: "applicantID",
				list: applicantHandler.List, get: applicantHandler.Get, remove: applicantHandler.Delete,
			})

			// Subadmin management is reserved to admins.
			r.Route("/subadmins", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(s.rbac, s.logger))
				r.Get("/", subadminHandler.List)
				r.Post("/", subadminHandler.Create)
				r.Route("/{userID}", func(r chi.Router) {
					r.Use(decode("userID"))
					r.Get("/", subadminHandler.Get)
					r.Patch("/", subadminHandler.Update)
					r.Delete("/", subadminHandler.Delete)
					r.Put("/permissions", subadminHandler.UpdatePermissions)
				})
			})
		})
	})

	s.router = r
}

// mountResource routes the admin endpoints of one module behind its permission checks.
func (s *Server) mountResource(r chi.Router, pattern string, res resource) {
	allow := func(a models.Action) func(http.Handler) http.Handler {
		return middleware.RequirePermission(s.rbac, res.module, a, s.logger)
	}

	r.Route(pattern, func(r chi.Router) {
		if res.list != nil {
			r.With(allow(models.ActionView)).Get("/", res.list)
		}
		if res.create != nil {
			r.With(allow(models.ActionCreate)).Post("/", res.create)
		}
		r.Route("/{"+res.param+"}", func(r chi.Router) {
			r.Use(middleware.DecodeID(s.codec, res.param))
			if res.get != nil {
				r.With(allow(models.ActionView)).Get("/", res.get)
			}
			if res.update != nil {
				r.With(allow(models.ActionUpdate)).Patch("/", res.update)
				r.With(allow(models.ActionUpdate)).Put("/", res.update)
			}
			if res.remove != nil {
				r.With(allow(models.ActionDelete)).Delete("/", res.remove)
			}
		})
	})
}

// Start serves HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr, "version", Version)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
