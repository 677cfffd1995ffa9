// Package server initializes and runs the identity server: it opens the
// PostgreSQL database, applies migrations, and serves the gRPC API and the
// Prometheus metrics endpoint until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/intelliworks/intellihome/internal/logging"
	"github.com/intelliworks/intellihome/internal/server/config"
	"github.com/intelliworks/intellihome/internal/server/metrics"
	"github.com/intelliworks/intellihome/internal/server/repositories/repomanager"
	"github.com/intelliworks/intellihome/internal/server/services"

	gs "github.com/intelliworks/intellihome/internal/server/grpc"
)

// Seams for tests.
var (
	openDB         = repomanager.OpenPostgres
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	metrics     *metrics.Metrics
	userService *services.UserService
	creds       credentials.TransportCredentials
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	creds, err := gs.ServerCredentials(c.TLSCertFile, c.TLSKeyFile, c.Insecure)
	if err != nil {
		return nil, fmt.Errorf("tls init error: %w", err)
	}
	if c.Insecure {
		logger.Warn(ctx, "TLS is disabled, serving plaintext gRPC")
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, rm, c)

	return &App{config: c, logger: logger, db: db, metrics: metrics.New(), userService: us, creds: creds}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.metrics, app.config.SecretKey, grpc.Creds(app.creds))

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server error", "error", err)
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context) {
	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)

	if err := app.metrics.Serve(ctx, app.config.MetricsAddr); err != nil {
		app.logger.Error(ctx, "metrics server error", "error", err)
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or the
// gRPC server fails. The database is closed on return.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
