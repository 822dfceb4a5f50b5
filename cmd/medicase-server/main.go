package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicase/medicase/internal/config"
	"github.com/medicase/medicase/internal/domain/audit"
	"github.com/medicase/medicase/internal/domain/cases"
	"github.com/medicase/medicase/internal/domain/documents"
	"github.com/medicase/medicase/internal/domain/examination"
	"github.com/medicase/medicase/internal/domain/extraction"
	"github.com/medicase/medicase/internal/domain/qa"
	"github.com/medicase/medicase/internal/domain/reports"
	"github.com/medicase/medicase/internal/domain/timeline"
	"github.com/medicase/medicase/internal/platform/analyzer"
	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/blobstore"
	"github.com/medicase/medicase/internal/platform/cache"
	"github.com/medicase/medicase/internal/platform/db"
	"github.com/medicase/medicase/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "medicase-server",
		Short: "MediCase IME case management API server",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Cache: Redis when configured, in-process store otherwise.
	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info().Msg("connected to redis")
	} else {
		mem := cache.NewMemoryStore()
		mem.StartCleanup(ctx, time.Minute)
		store = mem
		logger.Warn().Msg("REDIS_URL not set, using in-process cache")
	}
	collections := cache.NewCollection(store, cfg.CacheTTL())

	// Document analysis service client
	az := analyzer.NewClient(cfg.AnalyzerURL, cfg.AnalyzerAPIKey, cfg.AnalyzerRequestTimeout())

	// Blob storage
	blobs := blobstore.NewInMemoryBlobStore()

	// Repositories
	caseRepo := cases.NewCaseRepoPG(pool)
	entityRepo := extraction.NewEntityRepoPG(pool)
	dateRepo := extraction.NewDateRepoPG(pool)
	auditRepo := audit.NewRepoPG(pool)
	qaRepo := qa.NewRepoPG(pool)
	docRepo := documents.NewRepoPG(pool)
	examRepo := examination.NewRepoPG(pool)
	reportRepo := reports.NewRepoPG(pool)
	timelineRepo := timeline.NewRepoPG(pool)

	// Services. Audit comes first: extraction records every data change
	// through it.
	auditSvc := audit.NewService(auditRepo, collections)
	caseSvc := cases.NewService(caseRepo)
	extractionSvc := extraction.NewService(entityRepo, dateRepo, auditSvc, collections)
	qaSvc := qa.NewService(qaRepo, collections)
	docSvc := documents.NewService(docRepo, blobs, az, extractionSvc, collections)
	examSvc := examination.NewService(examRepo, collections)
	reportSvc := reports.NewService(reportRepo, extractionSvc, collections)
	timelineSvc := timeline.NewService(timelineRepo, extractionSvc, examSvc, collections)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.BodyLimit(1<<20, cfg.MaxUploadBytes))
	e.Use(middleware.CaptureRequestInfo())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Route registration
	cases.NewHandler(caseSvc).RegisterRoutes(apiV1)
	extraction.NewHandler(extractionSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)
	qa.NewHandler(qaSvc).RegisterRoutes(apiV1)
	documents.NewHandler(docSvc).RegisterRoutes(apiV1)
	examination.NewHandler(examSvc).RegisterRoutes(apiV1)
	reports.NewHandler(reportSvc).RegisterRoutes(apiV1)
	timeline.NewHandler(timelineSvc).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
