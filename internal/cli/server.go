package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qa-training-service/internal/app"
	"qa-training-service/internal/config"
	"qa-training-service/internal/infra/memory"
	pgstore "qa-training-service/internal/infra/postgres"
	redisinfra "qa-training-service/internal/infra/redis"
	transport "qa-training-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the training service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	fetchTimeout := config.TTLDuration(cfg.Quiz.FetchTimeout, 10*time.Second)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Persistence: postgres when configured, in-memory demo mode otherwise;
	// redis, when present, shadows progress and caches scenario tables.
	var (
		catalogLoader memory.CatalogLoader
		backend       redisinfra.ProgressBackend
		users         transport.UserStore
		settings      app.SettingsStore
	)
	if pool != nil {
		store := pgstore.NewStore(pool)
		catalogLoader = store
		backend = store
		users = store
		settings = store
	} else {
		store := memory.NewStore()
		catalogLoader = memory.NewStaticCatalogLoader(builtinCatalog())
		backend = store
		users = store
		settings = store
	}

	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisinfra.NewCatalogRepository(redisClient, catalogLoader, catalogTTL)
	} else {
		catalog = memory.NewCatalogRepository(catalogLoader, catalogTTL)
	}

	progress := backend
	if redisClient != nil {
		progress = redisinfra.NewProgressCache(backend, redisClient, redisTTL)
	}

	engine := app.NewQuizEngine(catalog, progress, logger)
	scheduler := app.NewResetScheduler(settings, users, progress, logger)

	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	go func() {
		if err := scheduler.Start(schedCtx); err != nil {
			logger.Error("scheduler exited", zap.Error(err))
		}
	}()

	playHandler := transport.NewPlayHandler(engine, logger, fetchTimeout)
	countdownHandler := transport.NewCountdownHandler(scheduler, logger)
	adminHandler := transport.NewAdminHandler(scheduler, users, progress, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/play", playHandler.ServePlay)
	mux.HandleFunc("/ws/countdown", countdownHandler.ServeCountdown)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting qa training service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
