// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "iqdump-service/docs"
	"iqdump-service/internal/capture"
	"iqdump-service/internal/config"
	"iqdump-service/internal/database"
	"iqdump-service/internal/driver/siwifi"
	"iqdump-service/internal/events"
	"iqdump-service/internal/repository"
	"iqdump-service/internal/routes"
	"iqdump-service/internal/service"
	"iqdump-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB
	bus      *events.Bus

	// Services
	dutService       *service.DutService
	analysisService  *service.AnalysisService
	planService      *service.PlanService
	discoveryService *service.DiscoveryService

	// Repositories
	sweepRepo repository.SweepRepository

	cancel context.CancelFunc
}

// @title IQ Dump Service API
// @version 1.0
// @description Drives a WiFi DUT through gain sweeps, collects IQ captures and reports RF metrics.

// @host localhost:8090
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.LoadFrom(os.Getenv("IQDUMP_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "iqdump-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()
	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeDatabase connects to postgres and migrates it when sweep history is persisted
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, sweep history is kept in memory")
		return nil
	}

	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	if version, dirty, err := migrator.Version(); err == nil {
		app.logger.Info("Database schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database != nil {
		app.sweepRepo = repository.NewSweepRepository(app.database, app.logger)
	} else {
		app.sweepRepo = repository.NewMemorySweepRepository(app.logger)
	}

	app.logger.Info("Repositories initialized successfully")
}

// initializeServices creates the event bus and service instances
func (app *Application) initializeServices() {
	app.bus = events.NewBus(app.config.Events.BufferSize, app.logger)

	// Captures left by an earlier run stay available for analysis
	catalog, err := capture.ScanDir(app.config.DUT.OutputDir)
	if err != nil {
		catalog = capture.NewCatalog()
	} else if catalog.Len() > 0 {
		app.logger.Info("Existing captures found",
			zap.String("dir", app.config.DUT.OutputDir),
			zap.Int("files", catalog.Len()),
		)
	}

	app.dutService = service.NewDutService(
		app.sweepRepo,
		app.bus,
		catalog,
		siwifi.NewPhyIndex(),
		app.config,
		app.logger,
	)
	app.analysisService = service.NewAnalysisService(app.bus, app.config, app.logger)
	app.planService = service.NewPlanService(app.dutService, app.analysisService, app.logger)
	app.discoveryService = service.NewDiscoveryService(&app.config.Discovery, app.logger)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.bus,
		app.dutService,
		app.analysisService,
		app.planService,
		app.discoveryService,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized", zap.String("address", app.config.GetServerAddr()))
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices(ctx context.Context) {
	go app.bus.Start(ctx)
	go app.startLinkMonitor(ctx)

	if app.config.Database.Retention > 0 {
		go app.startCleanupService(ctx)
	}

	app.logger.Info("Background services started")
}

// startLinkMonitor reports a DUT session that has become unusable
func (app *Application) startLinkMonitor(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	reported := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := app.dutService.Status()
			if status.Broken != "" && status.Broken != reported {
				app.logger.Warn("DUT session is broken, reconnect required",
					zap.String("address", status.Address),
					zap.String("reason", status.Broken),
				)
			}
			reported = status.Broken
		}
	}
}

// startCleanupService prunes sweep history older than the retention period
func (app *Application) startCleanupService(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started", zap.Duration("retention", app.config.Database.Retention))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			deleted, err := app.sweepRepo.DeleteOldRuns(cleanupCtx, time.Now().Add(-app.config.Database.Retention))
			cancel()

			if err != nil {
				utils.LogError(app.logger, "Failed to cleanup old sweep runs", err,
					zap.Duration("retention", app.config.Database.Retention))
			} else if deleted > 0 {
				app.logger.Info("Cleaned up old sweep runs", zap.Int64("deleted", deleted))
			}
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "iqdump-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if app.cancel != nil {
		app.cancel()
	}
	app.dutService.Close()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices(ctx)
	app.waitForShutdown()
	return nil
}
