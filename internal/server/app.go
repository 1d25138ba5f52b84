// Package server wires configuration, storage, policy and the HTTP API
// together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/buoytelemetry/internal/logging"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/config"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/httpapi"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/policy"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager(), policy.SystemClock{})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager, clock policy.Clock) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	engine, err := policy.NewEngine(clock)
	if err != nil {
		return nil, fmt.Errorf("policy init error: %w", err)
	}

	us := services.NewUserService(db, rm, clock, c)
	ts := services.NewTelemetryService(db, rm, engine, logger)

	hs := httpapi.NewServer(httpapi.Options{
		Address:                c.EndpointAddrHTTP,
		SecretKey:              c.SecretKey,
		CORSAllowedOrigins:     c.CORSAllowedOrigins,
		AuthRateLimitPerMinute: c.AuthRateLimitPerMinute,
	}, logger, us, ts, db)

	return &App{config: c, logger: logger, db: db, httpServer: hs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
