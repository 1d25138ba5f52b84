// Package httpapi exposes the telemetry server over HTTP using chi.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/buoytelemetry/internal/logging"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/policy"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserService is the authentication backend of the API.
type UserService interface {
	Register(ctx context.Context, reg *models.Registration) (*models.User, error)
	Login(ctx context.Context, creds *models.Credentials) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// TelemetryService is the telemetry backend of the API.
type TelemetryService interface {
	Create(ctx context.Context, role policy.Role, in *models.NewTelemetry) (*models.Telemetry, error)
	Get(ctx context.Context, role policy.Role, id int64) (models.Reading, error)
	BulkGet(ctx context.Context, role policy.Role, ids []int64) ([]models.Reading, error)
	Update(ctx context.Context, role policy.Role, id int64, patch *models.TelemetryPatch) (*models.Telemetry, error)
	Delete(ctx context.Context, role policy.Role, id int64) error
	BulkUpdate(ctx context.Context, role policy.Role, entries []models.TelemetryPatchEntry) (int, error)
	BulkDelete(ctx context.Context, role policy.Role, ids []int64) (int64, error)
}

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Address            string
	SecretKey          string
	CORSAllowedOrigins []string
	// AuthRateLimitPerMinute caps /register, /login and /refresh per client
	// IP. Zero disables the limit.
	AuthRateLimitPerMinute int
}

type Server struct {
	opts      Options
	logger    logging.Logger
	users     UserService
	telemetry TelemetryService
	db        Pinger
	jwtSecret []byte
}

func NewServer(opts Options, l logging.Logger, us UserService, ts TelemetryService, db Pinger) *Server {
	return &Server{
		opts:      opts,
		logger:    l.With("module", "http_server"),
		users:     us,
		telemetry: ts,
		db:        db,
		jwtSecret: []byte(opts.SecretKey),
	}
}

// Router builds the route tree. /telemetry/bulk is registered before
// /telemetry/{id} so "bulk" is never taken for an id.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health/live", s.healthLive)
	r.Get("/health/ready", s.healthReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.AuthRateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.opts.AuthRateLimitPerMinute, time.Minute))
		}
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refresh", s.refresh)
	})

	r.Route("/telemetry", func(r chi.Router) {
		r.Use(s.bearerAuth)

		r.Post("/", s.createTelemetry)

		r.Get("/bulk", s.bulkGetTelemetry)
		r.Put("/bulk", s.bulkUpdateTelemetry)
		r.Delete("/bulk", s.bulkDeleteTelemetry)

		r.Get("/{id}", s.getTelemetry)
		r.Put("/{id}", s.updateTelemetry)
		r.Delete("/{id}", s.deleteTelemetry)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
