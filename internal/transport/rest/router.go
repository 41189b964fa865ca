package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/marketplace/api"
	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/access"
	"github.com/frahmantamala/marketplace/internal/auth"
	"github.com/frahmantamala/marketplace/internal/module"
	"github.com/frahmantamala/marketplace/internal/permission"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
	"github.com/frahmantamala/marketplace/internal/transport/middleware"
	"github.com/frahmantamala/marketplace/internal/transport/swagger"
	"github.com/frahmantamala/marketplace/pkg/observability"
)

// Module names the management endpoints are gated on. The seed command
// creates them.
const (
	ModuleUsers       = "Users"
	ModuleRoles       = "Roles"
	ModuleModules     = "Modules"
	ModulePermissions = "Permissions"
	ModuleCustomers   = "Customers"
	ModuleFreelancers = "Freelancers"
	ModuleBusinesses  = "Businesses"
	ModuleVendors     = "Vendors"
)

// accountMount ties an account type to its self-service prefix and to the
// module (and submodule) its administration is gated on.
type accountMount struct {
	Type      principal.Type
	SelfPath  string
	AdminPath string
	Module    string
	SubModule []string
}

var accountMounts = []accountMount{
	{Type: principal.TypeCustomer, SelfPath: "/customer", AdminPath: "/customers", Module: ModuleCustomers},
	{Type: principal.TypeFreelancer, SelfPath: "/freelancer", AdminPath: "/freelancers", Module: ModuleFreelancers},
	{Type: principal.TypeBusiness, SelfPath: "/business", AdminPath: "/businesses", Module: ModuleBusinesses},
	{Type: principal.TypeVendorB2B, SelfPath: "/vendor/b2b", AdminPath: "/vendors/b2b", Module: ModuleVendors, SubModule: []string{"B2B"}},
	{Type: principal.TypeVendorB2C, SelfPath: "/vendor/b2c", AdminPath: "/vendors/b2c", Module: ModuleVendors, SubModule: []string{"B2C"}},
}

const (
	readLevel  = 5
	writeLevel = 10
)

type Dependencies struct {
	DB     *sql.DB
	Probes map[string]Probe
	Config *internal.Config
	Logger *slog.Logger
	Gate   *access.Gate

	Auth        *auth.Handler
	Principals  *principal.Handler
	Roles       *role.Handler
	Modules     *module.Handler
	Permissions *permission.Handler

	HTTPMetrics *observability.HTTPMetrics
	Metrics     http.Handler
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	healthHandler := NewHealthHandler(deps.DB, deps.Probes)
	cfg := deps.Config

	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.SecureHeaders(cfg.Server.SSLRedirect, deps.Logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if deps.HTTPMetrics != nil {
		router.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	router.Get(swagger.DocumentPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})
	router.Handle("/swagger/*", swagger.Handler(swagger.DocumentPath))
	if deps.Metrics != nil {
		router.Handle(cfg.Observability.Metrics.Path, deps.Metrics)
	}

	gate := deps.Gate

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth/{type}", func(ar chi.Router) {
			if cfg.RateLimit.Enabled {
				ar.Use(middleware.RateLimitByIP(cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow))
			}
			ar.Post("/login", deps.Auth.Login)
			ar.Post("/register", deps.Auth.Register)
		})

		r.With(gate.AuthenticateAny()).Get("/me", deps.Principals.Me)

		platform := gate.AuthenticateUser()
		r.With(platform).Get("/platform/profile", deps.Principals.Me)
		r.With(platform).Put("/platform/profile", deps.Principals.UpdateProfile)
		r.With(platform).Put("/platform/change-password", deps.Principals.ChangePassword)
		for _, m := range accountMounts {
			own := gate.Authenticate(m.Type)
			r.With(own).Get(m.SelfPath+"/profile", deps.Principals.Me)
			r.With(own).Put(m.SelfPath+"/profile", deps.Principals.UpdateProfile)
			r.With(own).Put(m.SelfPath+"/change-password", deps.Principals.ChangePassword)
		}

		r.Route("/platform/users", func(ur chi.Router) {
			ur.Use(gate.AuthenticateUser())
			ur.Use(gate.Authorize(access.AuthorizeOptions{MinLevel: writeLevel}))
			ur.With(gate.CheckPermission(ModuleUsers, "create")).Post("/", deps.Principals.CreatePlatformUser)
			ur.With(gate.CheckPermission(ModuleUsers, "update")).Patch("/{id}/status", deps.Principals.UpdateAccountStatus(principal.TypeUser))
			ur.With(gate.CheckPermission(ModuleUsers, "delete")).Delete("/{id}", deps.Principals.DeleteAccount(principal.TypeUser))
		})

		for _, m := range accountMounts {
			r.Route(m.AdminPath, func(ar chi.Router) {
				ar.Use(gate.AuthenticateUser())
				ar.Use(gate.Authorize(access.AuthorizeOptions{MinLevel: readLevel}))
				view := gate.CheckPermission(m.Module, "view", m.SubModule...)
				edit := gate.CheckPermission(m.Module, "edit", m.SubModule...)
				del := gate.CheckPermission(m.Module, "delete", m.SubModule...)

				ar.With(view).Get("/", deps.Principals.ListAccounts(m.Type))
				ar.With(view).Get("/{id}", deps.Principals.GetAccount(m.Type))
				ar.With(edit).Put("/{id}", deps.Principals.UpdateAccount(m.Type))
				ar.With(edit).Patch("/{id}/status", deps.Principals.UpdateAccountStatus(m.Type))
				ar.With(del).Delete("/{id}", deps.Principals.DeleteAccount(m.Type))
			})
		}

		r.Route("/roles", func(rr chi.Router) {
			rr.Use(gate.AuthenticateUser())

			rr.Group(func(read chi.Router) {
				read.Use(gate.Authorize(access.AuthorizeOptions{MinLevel: readLevel}))
				read.Use(gate.CheckPermission(ModuleRoles, "view"))
				read.Get("/", deps.Roles.List)
				read.Get("/{id}", deps.Roles.Get)
			})

			rr.Group(func(write chi.Router) {
				write.Use(gate.Authorize(access.AuthorizeOptions{MinLevel: writeLevel}))
				add := gate.CheckPermission(ModuleRoles, "add")
				edit := gate.CheckPermission(ModuleRoles, "edit")
				del := gate.CheckPermission(ModuleRoles, "delete")

				write.With(add).Post("/", deps.Roles.Create)
				write.With(edit).Put("/{id}", deps.Roles.Update)
				write.With(del).Delete("/{id}", deps.Roles.SoftDelete)
				write.With(edit).Post("/{id}/restore", deps.Roles.Restore)
				write.With(del).Delete("/{id}/permanent", deps.Roles.PermanentDelete)
			})
		})

		r.Route("/modules", func(mr chi.Router) {
			mr.With(gate.AuthenticateAny()).Get("/menu", deps.Modules.Menu)

			mr.Group(func(g chi.Router) {
				g.Use(gate.AuthenticateUser())
				view := gate.CheckPermission(ModuleModules, "view")
				add := gate.CheckPermission(ModuleModules, "add")
				edit := gate.CheckPermission(ModuleModules, "edit")
				del := gate.CheckPermission(ModuleModules, "delete")

				g.With(view).Get("/", deps.Modules.List)
				g.With(add).Post("/", deps.Modules.Create)
				g.With(edit).Put("/reorder", deps.Modules.Reorder)
				g.With(view).Get("/{id}", deps.Modules.Get)
				g.With(edit).Put("/{id}", deps.Modules.Update)
				g.With(del).Delete("/{id}", deps.Modules.SoftDelete)
				g.With(edit).Post("/{id}/restore", deps.Modules.Restore)

				g.With(add).Post("/{id}/submodules", deps.Modules.AddSubModule)
				g.With(edit).Put("/{id}/submodules/reorder", deps.Modules.ReorderSubModules)
				g.With(edit).Put("/{id}/submodules/{subID}", deps.Modules.UpdateSubModule)
				g.With(del).Delete("/{id}/submodules/{subID}", deps.Modules.DeleteSubModule)
				g.With(edit).Post("/{id}/submodules/{subID}/restore", deps.Modules.RestoreSubModule)
			})
		})

		r.Route("/permissions", func(pr chi.Router) {
			pr.With(gate.AuthenticateAny()).Get("/my", deps.Permissions.Mine)

			pr.Group(func(g chi.Router) {
				g.Use(gate.AuthenticateUser())
				view := gate.CheckPermission(ModulePermissions, "view")
				add := gate.CheckPermission(ModulePermissions, "add")
				edit := gate.CheckPermission(ModulePermissions, "edit")
				del := gate.CheckPermission(ModulePermissions, "delete")

				g.With(view).Get("/", deps.Permissions.List)
				g.With(add).Post("/", deps.Permissions.Create)
				g.With(view).Get("/{id}", deps.Permissions.Get)
				g.With(edit).Put("/{id}", deps.Permissions.Update)
				g.With(del).Delete("/{id}", deps.Permissions.SoftDelete)
				g.With(edit).Post("/{id}/restore", deps.Permissions.Restore)
				g.With(del).Delete("/{id}/permanent", deps.Permissions.HardDelete)
			})
		})
	})
}

// NewServer builds the http.Server with the configured timeouts.
func NewServer(cfg internal.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}
