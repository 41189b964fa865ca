package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/access"
	"github.com/frahmantamala/marketplace/internal/auth"
	"github.com/frahmantamala/marketplace/internal/core/events"
	"github.com/frahmantamala/marketplace/internal/module"
	modulePostgres "github.com/frahmantamala/marketplace/internal/module/postgres"
	"github.com/frahmantamala/marketplace/internal/permission"
	permissionPostgres "github.com/frahmantamala/marketplace/internal/permission/postgres"
	"github.com/frahmantamala/marketplace/internal/principal"
	principalPostgres "github.com/frahmantamala/marketplace/internal/principal/postgres"
	"github.com/frahmantamala/marketplace/internal/role"
	rolePostgres "github.com/frahmantamala/marketplace/internal/role/postgres"
	"github.com/frahmantamala/marketplace/internal/transport"
	"github.com/frahmantamala/marketplace/internal/transport/rest"
	"github.com/frahmantamala/marketplace/pkg/observability"
)

// App is the wired object graph behind the HTTP server.
type App struct {
	Router    *chi.Mux
	Directory *access.ModuleDirectory
	Bus       *events.EventBus
	Tokens    *auth.TokenCodec
}

type appDeps struct {
	Config   *internal.Config
	DB       *gorm.DB
	SQLX     *sqlx.DB
	Store    access.Store
	Probes   map[string]rest.Probe
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

func newApp(d appDeps) (*App, error) {
	cfg := d.Config
	lg := d.Logger

	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}

	var registerer prometheus.Registerer
	var httpMetrics *observability.HTTPMetrics
	var metricsHandler http.Handler
	if d.Registry != nil && cfg.Observability.Metrics.Enabled {
		registerer = d.Registry
		httpMetrics = observability.NewHTTPMetrics(d.Registry)
		metricsHandler = observability.Handler(d.Registry)
	}
	accessMetrics := access.NewMetrics(registerer)

	roleRepo := rolePostgres.NewRoleRepository(d.DB)
	moduleRepo := modulePostgres.NewModuleRepository(d.DB)
	permissionRepo := permissionPostgres.NewPermissionRepository(d.DB)
	accountRepo := principalPostgres.NewAccountRepository(d.DB)
	capabilityReader := permissionPostgres.NewCapabilityReader(d.SQLX)

	bus := events.NewEventBus(lg)
	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	tokens := auth.NewTokenCodec(cfg.Security.JWTSecret, cfg.Security.TokenExpiry, nil)

	roleService := role.NewService(roleRepo, lg, permissionRepo, accountRepo)
	moduleService := module.NewService(moduleRepo, permissionRepo, bus, lg)
	permissionService := permission.NewService(permissionRepo, roleRepo, moduleRepo, capabilityReader, lg)
	principalService := principal.NewService(accountRepo, roleRepo, hasher, lg)
	authService := auth.NewService(principalService, roleService, tokens, hasher, lg)

	directory, err := access.NewModuleDirectory(moduleRepo, access.DirectoryOptions{
		TTL:     cfg.Access.CacheTTL,
		Store:   d.Store,
		Metrics: accessMetrics,
		Logger:  lg,
	})
	if err != nil {
		return nil, fmt.Errorf("module directory: %w", err)
	}
	if cfg.Access.CachePolicy == internal.CachePolicyInvalidate {
		directory.SubscribeTo(bus)
	}

	evaluator := access.NewEvaluator(directory, permissionRepo, permissionService, accessMetrics, lg)
	gate := access.NewGate(tokens, principal.NewResolver(accountRepo, roleRepo), evaluator, access.GateOptions{
		ExposeDenialReason: cfg.Access.ExposeDenialReason,
		Metrics:            accessMetrics,
		Logger:             lg,
	})

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Dependencies{
		DB:          sqlDB,
		Probes:      d.Probes,
		Config:      cfg,
		Logger:      lg,
		Gate:        gate,
		Auth:        auth.NewHandler(base, authService),
		Principals:  principal.NewHandler(base, principalService),
		Roles:       role.NewHandler(base, roleService),
		Modules:     module.NewHandler(base, moduleService),
		Permissions: permission.NewHandler(base, permissionService),
		HTTPMetrics: httpMetrics,
		Metrics:     metricsHandler,
	})

	return &App{Router: router, Directory: directory, Bus: bus, Tokens: tokens}, nil
}
