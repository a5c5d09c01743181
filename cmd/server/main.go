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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/analytics"
	"alcyxob/workout-engine/internal/api"
	"alcyxob/workout-engine/internal/auth"
	"alcyxob/workout-engine/internal/config"
	"alcyxob/workout-engine/internal/logging"
	"alcyxob/workout-engine/internal/repository"
	"alcyxob/workout-engine/internal/repository/memory"
	"alcyxob/workout-engine/internal/repository/mongo"
	"alcyxob/workout-engine/internal/service"
	"alcyxob/workout-engine/internal/storage"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "workout-engine",
		Short: "Active workout mutation engine",
	}
	rootCmd.AddCommand(newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(viper.GetViper(), cfgPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", ".", "Directory holding config.yaml")
	flags.String("address", defaults.GetString("server.address"), "HTTP listen address")
	flags.String("db-driver", defaults.GetString("database.driver"), "Aggregate store driver (mongo, memory)")
	flags.String("db-uri", defaults.GetString("database.uri"), "MongoDB connection URI")
	flags.String("db-name", defaults.GetString("database.name"), "MongoDB database name")
	flags.Duration("stale-after", defaults.GetDuration("workout.stale_after"), "Age after which an in-progress workout is replaced on start")
	flags.Int("max-attempts", defaults.GetInt("store.max_attempts"), "Transaction attempts before giving up on conflicts")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "server.address", "address")
	bindFlag(cmd, "database.driver", "db-driver")
	bindFlag(cmd, "database.uri", "db-uri")
	bindFlag(cmd, "database.name", "db-name")
	bindFlag(cmd, "workout.stale_after", "stale-after")
	bindFlag(cmd, "store.max_attempts", "max-attempts")
	bindFlag(cmd, "log.level", "log-level")
	return cmd
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	// --- Storage ---
	store, catalog, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Collaborators ---
	var exporter service.ArchiveExporter
	if cfg.S3.Enabled {
		objects, err := storage.NewS3Storage(ctx, cfg.S3, logger)
		if err != nil {
			return err
		}
		exporter = storage.NewArchiveExporter(objects, cfg.S3.Prefix, cfg.S3.URLExpiry, logger)
	}
	var notifier service.CompletionNotifier
	if cfg.Analytics.Endpoint != "" {
		tokens := auth.NewTokenCache(auth.TokenCacheConfig{
			SigningSecret: []byte(cfg.Analytics.SigningSecret),
			Issuer:        "workout-engine",
			Audience:      "analytics",
			Subject:       "workout-engine",
			TTL:           cfg.Analytics.TokenTTL,
		})
		notifier = analytics.NewNotifier(analytics.NotifierConfig{
			Endpoint: cfg.Analytics.Endpoint,
			Timeout:  cfg.Analytics.Timeout,
		}, tokens, logger)
	}

	// --- Services ---
	workouts := service.NewWorkoutService(store, catalog, service.NewIdempotencyGuard(logger), logger)
	lifecycle := service.NewLifecycleService(store, catalog, service.LifecycleConfig{StaleAfter: cfg.Workout.StaleAfter},
		exporter, notifier, logger)

	router := api.NewRouter(api.RouterConfig{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, workouts, lifecycle, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", cfg.Server.Address), zap.String("driver", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// openStore wires the configured aggregate store and catalog.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.AggregateStore, repository.CatalogRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("using the in-memory store; state is lost on exit")
		store := memory.NewStore(memory.WithMaxAttempts(cfg.Store.MaxAttempts), memory.WithLogger(logger))
		return store, memory.NewCatalog(), func() {}, nil
	case config.DriverMongo:
		client, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		db := client.Database(cfg.Database.Name)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		mongo.EnsureIndexes(indexCtx, db, logger)
		cancel()

		closeFn := func() {
			if err := mongo.DisconnectDB(client); err != nil {
				logger.Error("failed to disconnect mongodb", zap.Error(err))
			}
		}
		return mongo.NewMongoAggregateStore(client, db, cfg.Store.MaxAttempts, logger), mongo.NewMongoCatalogRepository(db), closeFn, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
