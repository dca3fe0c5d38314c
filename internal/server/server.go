package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/itparc/inventory/config"
	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/db"
	"github.com/itparc/inventory/internal/events"
	"github.com/itparc/inventory/internal/handlers"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/mq"
	"github.com/itparc/inventory/internal/services"
	"github.com/itparc/inventory/internal/storage"
	"github.com/itparc/inventory/internal/store"
)

const defaultPort = 5000

// Services bundles the use-cases served over HTTP.
type Services struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Equipment   *services.EquipmentService
	Maintenance *services.MaintenanceService
}

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	blobs      *storage.Storage
	mq         *mq.MQ
	log        logging.Logger
}

// New connects to the database, the optional attachment storage and the
// optional broker, and builds the router.
func New(ctx context.Context, cfg config.Config, log logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := auth.New(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	blobs, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		if blobs != nil {
			_ = blobs.Close()
		}
		_ = dbConn.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}

	if blobs != nil {
		log.Info(ctx, "attachment storage enabled", "backend", cfg.Storage.Backend, "bucket", blobs.Bucket())
	}
	if queue != nil {
		log.Info(ctx, "event publishing enabled", "backend", cfg.MQ.Backend, "topic", queue.Topic())
	}

	userRepo := store.NewUserRepository(dbConn)
	equipmentRepo := store.NewEquipmentRepository(dbConn)
	maintenanceRepo := store.NewMaintenanceRepository(dbConn)
	attachmentRepo := store.NewAttachmentRepository(dbConn)

	publisher := events.FromMQ(queue, log)

	// A nil *storage.Storage must not become a non-nil BlobStore.
	var blobStore services.BlobStore
	if blobs != nil {
		blobStore = blobs
	}

	userService := services.NewUserService(userRepo, creds, publisher)
	svc := Services{
		Auth:        services.NewAuthService(userService, userRepo, creds),
		Users:       userService,
		Equipment:   services.NewEquipmentService(equipmentRepo, userRepo, publisher),
		Maintenance: services.NewMaintenanceService(maintenanceRepo, equipmentRepo, attachmentRepo, blobStore, publisher, log),
	}

	router := NewRouter(svc, dbConn, cfg.CORS, log)

	port := cfg.ServerPort
	if port == 0 {
		port = defaultPort
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		blobs:      blobs,
		mq:         queue,
		log:        log,
	}, nil
}

// NewRouter builds the HTTP surface over svc.
func NewRouter(svc Services, pinger handlers.Pinger, corsCfg config.CORSConfig, log logging.Logger) *chi.Mux {
	requireAuth := handlers.RequireAuth(svc.Auth, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(log),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   corsCfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/healthz", handlers.Healthz(pinger))
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, svc.Auth, log)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth, handlers.RequireAdmin)
			handlers.UserRouter(r, svc.Users, log)
		})
		r.Route("/equipments", func(r chi.Router) {
			r.Use(requireAuth)
			handlers.EquipmentRouter(r, svc.Equipment, log)
		})
		r.Route("/maintenances", func(r chi.Router) {
			r.Use(requireAuth)
			handlers.MaintenanceRouter(r, svc.Maintenance, log)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if mqErr := s.mq.Close(); mqErr != nil {
			s.log.Warn(ctx, "close mq failed", "error", mqErr)
		}
	}
	if s.blobs != nil {
		if blobErr := s.blobs.Close(); blobErr != nil {
			s.log.Warn(ctx, "close storage failed", "error", blobErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
