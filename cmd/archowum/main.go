package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"archowum/internal/config"
	"archowum/internal/database"
	"archowum/internal/database/migration"
	handlers "archowum/internal/http/handler"
	"archowum/internal/http/middleware"
	"archowum/internal/otel"
	"archowum/internal/repository/postgres"
	"archowum/internal/seed"
	"archowum/internal/service"
	"archowum/internal/storage"
)

func main() {
	cmd := &cli.Command{
		Name:   "archowum",
		Usage:  "Insurance document archive with versioned change history",
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply the database schema and exit",
				Action: runMigrate,
			},
			{
				Name:   "seed",
				Usage:  "Populate the database with a manager account and sample data",
				Action: runSeed,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "manager-user",
						Usage:   "Username for the seeded manager account",
						Value:   "admin",
						Sources: cli.EnvVars("SEED_MANAGER_USER"),
					},
					&cli.StringFlag{
						Name:    "manager-password",
						Usage:   "Password for the seeded manager account",
						Value:   "admin",
						Sources: cli.EnvVars("SEED_MANAGER_PASSWORD"),
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("archowum: %v", err)
	}
}

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg := config.Load()
	loc := time.UTC

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	objStore, err := newStorage(cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	docRepo := postgres.NewDocumentPostgres(db)
	productRepo := postgres.NewProductPostgres(db)
	categoryRepo := postgres.NewCategoryPostgres(db)
	historyRepo := postgres.NewHistoryPostgres(db)
	userRepo := postgres.NewUserPostgres(db)

	docSvc := service.NewDocumentService(objStore, docRepo, productRepo, categoryRepo, historyRepo)
	catalogSvc := service.NewCatalogService(objStore, docRepo, productRepo, categoryRepo)
	accountSvc := service.NewAccountService(userRepo)

	sessions := session.New(session.Config{
		KeyLookup:      "cookie:" + cfg.Session.CookieName,
		Expiration:     time.Duration(cfg.Session.ExpiryHrs) * time.Hour,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, sessions, accountSvc, docSvc, catalogSvc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-sigCh:
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func runMigrate(ctx context.Context, _ *cli.Command) error {
	cfg := config.Load()
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	return migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host)
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Load()
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	objStore, err := newStorage(cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	docRepo := postgres.NewDocumentPostgres(db)
	productRepo := postgres.NewProductPostgres(db)
	categoryRepo := postgres.NewCategoryPostgres(db)
	historyRepo := postgres.NewHistoryPostgres(db)
	userRepo := postgres.NewUserPostgres(db)

	return seed.Run(ctx, seed.Deps{
		Users:    userRepo,
		Catalog:  service.NewCatalogService(objStore, docRepo, productRepo, categoryRepo),
		Docs:     service.NewDocumentService(objStore, docRepo, productRepo, categoryRepo, historyRepo),
		Location: time.UTC,
	}, cmd.String("manager-user"), cmd.String("manager-password"))
}

func newStorage(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMinIO:
		return storage.NewMinIO(cfg.MinIO)
	case config.StorageBackendFilesystem:
		return storage.NewFilesystem(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
