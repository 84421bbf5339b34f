// Package server initializes and runs the snippetvault server.
// It opens the database, applies migrations, selects the encryption engine,
// starts the JSON API and the gRPC health endpoint, runs the audit archiver
// and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/config"
	"github.com/dmitrijs2005/snippetvault/internal/server/httpapi"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"

	gs "github.com/dmitrijs2005/snippetvault/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	handler  http.Handler
	health   *services.HealthService
	archiver *services.AuditArchiver
}

// NewApp validates c, connects to the database, applies migrations and
// builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, os.Stdout)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	cipher, err := newCipher(ctx, c, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}
	app.buildServices(rm, cipher)

	if c.AuditArchiveInterval > 0 {
		client, err := services.NewS3Client(ctx, c)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.archiver = services.NewAuditArchiver(db, rm, client, c.S3Bucket, c.AuditArchiveSettle, logger)
	}

	return app, nil
}

// newCipher builds the encryption engine from the configured secret. When
// the secret is unusable the server either refuses to start or keeps running
// with every encryption and decryption failing.
func newCipher(ctx context.Context, c *config.Config, logger logging.Logger) (cryptox.Cipher, error) {
	engine, err := cryptox.NewEngine(c.EncryptionKey)
	if err == nil {
		return engine, nil
	}
	if c.StrictEncryption {
		return nil, fmt.Errorf("encryption engine: %w", err)
	}
	logger.Error(ctx, "encryption engine unavailable, snippet operations will fail", "error", err)
	return cryptox.Unavailable{Reason: err}, nil
}

func (app *App) buildServices(rm repomanager.RepositoryManager, cipher cryptox.Cipher) {
	audit := services.NewAuditService(app.db, rm)
	app.health = services.NewHealthService(app.db, cipher, app.logger)

	h := httpapi.NewHandler(httpapi.Services{
		Users:    services.NewUserService(app.db, rm, audit, app.logger, app.config),
		Snippets: services.NewSnippetService(app.db, rm, cipher, audit, app.logger, app.config.AllowLegacyPlaintext),
		Shares:   services.NewShareService(app.db, rm, cipher, audit, app.logger, app.config),
		Audit:    audit,
		Health:   app.health,
	}, app.logger)

	app.handler = httpapi.NewRouter(h)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.health)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

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

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.archiver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.archiver.Run(ctx, app.config.AuditArchiveInterval)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
