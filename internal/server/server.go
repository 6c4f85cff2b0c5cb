package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/talent-hunters/bookportal/config"
	"github.com/talent-hunters/bookportal/internal/auth"
	"github.com/talent-hunters/bookportal/internal/handlers"
	"github.com/talent-hunters/bookportal/internal/logging"
	"github.com/talent-hunters/bookportal/internal/mq"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/internal/storage"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// Deps are the collaborators the router serves.
type Deps struct {
	Users             *services.UserService
	Books             *services.BookService
	Ledger            *services.LedgerService
	Catalog           *services.CatalogService
	Tokens            *auth.TokenService
	TokenHeader       string
	EnforceAdminRoles bool
	Log               *zap.Logger
}

// NewDeps builds the services over repos. covers and events may be nil,
// which disables cover uploads and ledger events respectively.
func NewDeps(cfg config.Config, repos Repositories, covers *storage.Storage, events *mq.MQ, log *zap.Logger) Deps {
	var (
		coverStore services.CoverStore
		publisher  services.EventPublisher
	)
	if covers != nil {
		coverStore = covers
	}
	if events != nil {
		publisher = events
	}

	validator := services.NewValidator()
	return Deps{
		Users: services.NewUserService(repos.Users, repos.Books, auth.NewBcryptHasher(cfg.Auth.BcryptCost), validator),
		Books: services.NewBookService(repos.Books, coverStore, cfg.Storage.PublicBaseURL, validator),
		Ledger: services.NewLedgerService(repos.Ledger, repos.Users, repos.Books, publisher, validator, log, services.LedgerOptions{
			StrictOrders:  cfg.Ledger.StrictOrders,
			EventsChannel: cfg.Ledger.EventsChannel,
		}),
		Catalog:           services.NewCatalogService(repos.Catalog, validator),
		Tokens:            auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		TokenHeader:       cfg.Auth.TokenHeader,
		EnforceAdminRoles: cfg.Auth.EnforceAdminRoles,
		Log:               log,
	}
}

// NewRouter mounts every route on a chi router with the standard
// middleware stack.
func NewRouter(deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	authMiddleware := handlers.RequireAuth(deps.Tokens, deps.TokenHeader)
	adminOnly := handlers.RequireAdmin(deps.Users, deps.EnforceAdminRoles, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(log),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)
	router.NotFound(handlers.NotFound)
	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, deps.Users, deps.Tokens, authMiddleware, log)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, deps.Users, deps.Ledger, authMiddleware, adminOnly, log)
		})
		r.Route("/books", func(r chi.Router) {
			handlers.BookRouter(r, deps.Books, deps.Ledger, authMiddleware, adminOnly, log)
		})
		r.Route("/classes", func(r chi.Router) {
			handlers.ClassRouter(r, deps.Catalog, log)
		})
		r.Route("/subjects", func(r chi.Router) {
			handlers.SubjectRouter(r, deps.Catalog, log)
		})
		r.NotFound(handlers.NotFound)
	})
	return router
}

// Server wraps the HTTP server, router and the backends they use.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	repos      Repositories
	events     *mq.MQ
	log        *zap.Logger
}

// New connects to the configured backends and builds the server.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	covers, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = repos.Close(ctx)
		return nil, err
	}
	if covers != nil {
		if err := covers.EnsureBucket(ctx); err != nil {
			_ = repos.Close(ctx)
			return nil, fmt.Errorf("ensure cover bucket: %w", err)
		}
	}

	events, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = repos.Close(ctx)
		return nil, err
	}

	router := NewRouter(NewDeps(cfg, repos, covers, events, log))

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		repos:      repos,
		events:     events,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		if cerr := s.events.Close(); cerr != nil {
			s.log.Warn("close message queue", zap.Error(cerr))
		}
	}
	if cerr := s.repos.Close(ctx); cerr != nil {
		s.log.Warn("close store", zap.Error(cerr))
	}
	return err
}
