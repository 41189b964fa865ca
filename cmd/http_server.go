package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/access"
	"github.com/frahmantamala/marketplace/internal/transport/rest"
	"github.com/frahmantamala/marketplace/pkg/logger"
	"github.com/frahmantamala/marketplace/pkg/observability"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *gorm.DB
	SQLX    *sqlx.DB
	Redis   redis.UniversalClient
	App     *App
	Logger  *slog.Logger
	Tracing observability.ShutdownFunc
}

func startHTTPServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.close()

	handler := otelhttp.NewHandler(deps.App.Router, "marketplace")
	server := rest.NewServer(deps.Config.Server, handler)

	serverErr := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.App.Bus.Wait()
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Logger.Info("server stopped")
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	tc := cfg.Observability.Tracing
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:      tc.Enabled,
		ServiceName:  tc.ServiceName,
		Endpoint:     tc.Endpoint,
		Insecure:     tc.Insecure,
		SamplingRate: tc.SamplingRate,
	}, lg)
	if err != nil {
		return nil, err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	deps := &Dependencies{
		Config:  cfg,
		DB:      db,
		SQLX:    sqlx.NewDb(sqlDB, "pgx"),
		Logger:  lg,
		Tracing: shutdownTracing,
	}

	var store access.Store
	probes := map[string]rest.Probe{}
	switch cfg.Access.CacheBackend {
	case internal.CacheBackendRedis:
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			deps.close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		store = access.NewRedisStore(deps.Redis)
		probes["module_cache"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	default:
		store, err = access.NewMemoryStore(cfg.Access.CacheSize, nil)
		if err != nil {
			deps.close()
			return nil, err
		}
	}

	app, err := newApp(appDeps{
		Config:   cfg,
		DB:       db,
		SQLX:     deps.SQLX,
		Store:    store,
		Probes:   probes,
		Registry: observability.NewRegistry(),
		Logger:   lg,
	})
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.App = app

	lg.Info("dependencies ready",
		"cache_backend", cfg.Access.CacheBackend,
		"cache_policy", cfg.Access.CachePolicy,
		"cache_ttl", cfg.Access.CacheTTL)
	return deps, nil
}

func (d *Dependencies) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				d.Logger.Error("database close error", "error", err)
			}
		}
	}
	if d.Tracing != nil {
		if err := d.Tracing(ctx); err != nil {
			d.Logger.Error("tracing shutdown error", "error", err)
		}
	}
}

// initDB opens gorm over pgx with unique violations translated to
// gorm.ErrDuplicatedKey.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
