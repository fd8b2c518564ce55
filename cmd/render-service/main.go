package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/renderlab/render-service/internal/api/handler"
	"github.com/renderlab/render-service/internal/api/router"
	"github.com/renderlab/render-service/internal/config"
	"github.com/renderlab/render-service/internal/orchestrator"
	"github.com/renderlab/render-service/internal/render"
	"github.com/renderlab/render-service/internal/storage"
	"github.com/renderlab/render-service/shared/logger"
	"github.com/renderlab/render-service/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("RENDER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/render-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting render service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Artifact store
	store, cleanup, err := initStore(&cfg.Storage, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	defer cleanup()

	appLogger.Info("Artifact store ready",
		slog.String("backend", cfg.Storage.Backend),
	)

	// Render pipeline
	workspaces, err := render.NewWorkspaceManager(cfg.Renderer.WorkRoot, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize workspace manager: %w", err)
	}

	pipeline := render.NewPipeline(render.Config{
		Command:   cfg.Renderer.Command,
		ExtraArgs: cfg.Renderer.ExtraArgs,
		Quality:   cfg.Renderer.Quality,
		Timeout:   cfg.Renderer.Timeout,
	}, workspaces, render.NewExecRunner(appLogger.Logger), appLogger.Logger)

	// Orchestrator and worker pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := orchestrator.New(orchestrator.Config{
		Concurrency:   cfg.Jobs.Concurrency,
		QueueSize:     cfg.Jobs.QueueSize,
		Retention:     cfg.Jobs.Retention,
		SweepInterval: cfg.Jobs.SweepInterval,
	}, pipeline, store, appLogger.Logger)
	orch.Start(ctx)

	// HTTP server
	r := initRouter(cfg.App.Environment, appLogger.Logger, orch, store)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Render service is running",
		slog.String("address", addr),
		slog.Int("render_concurrency", cfg.Jobs.Concurrency),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Let in-flight renders finish before tearing down the store.
	orch.Stop()
	cancel()

	appLogger.Info("Render service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initStore builds the configured artifact store and a cleanup func.
func initStore(cfg *config.StorageConfig, logger *slog.Logger) (storage.ArtifactStore, func(), error) {
	switch cfg.Backend {
	case config.StorageBackendPostgres:
		pgClient, err := postgresql.NewClient(&postgresql.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pgClient, cfg.PublicBaseURL, logger)
		return store, func() { pgClient.Close() }, nil

	case config.StorageBackendFilesystem:
		store, err := storage.NewFilesystemStore(cfg.Filesystem.Root, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, orch *orchestrator.Orchestrator, store storage.ArtifactStore) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:       logger,
		Orchestrator: orch,
		Store:        store,
	}

	return router.SetupRouter(handlerDeps)
}
