package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/auth"
	"github.com/frahmantamala/marketplace/internal/module"
	modulePostgres "github.com/frahmantamala/marketplace/internal/module/postgres"
	"github.com/frahmantamala/marketplace/internal/permission"
	permissionPostgres "github.com/frahmantamala/marketplace/internal/permission/postgres"
	"github.com/frahmantamala/marketplace/internal/principal"
	principalPostgres "github.com/frahmantamala/marketplace/internal/principal/postgres"
	"github.com/frahmantamala/marketplace/internal/role"
	rolePostgres "github.com/frahmantamala/marketplace/internal/role/postgres"
	"github.com/frahmantamala/marketplace/pkg/logger"
)

var (
	seedEmail    string
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, modules and the superadmin account",
	Long:  `Seed the baseline roles, management modules, admin grants and one superadmin platform user. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		s := newSeeder(db, cfg.Security.BCryptCost, logger.LoggerWrapper())
		return s.Run(cmd.Context(), SeedAccount{Email: seedEmail, Password: seedPassword})
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "superadmin@marketplace.local", "superadmin email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "superadmin123", "superadmin password")
}

const (
	roleSuperAdmin = "superadmin"
	roleAdmin      = "admin"
	roleStaff      = "staff"
)

var seedRoles = []role.CreateRoleRequest{
	{Code: roleSuperAdmin, Name: "Super Admin", Level: 100, IsSuperAdmin: true},
	{Code: roleAdmin, Name: "Administrator", Level: 10},
	{Code: roleStaff, Name: "Staff", Level: 5},
	{Code: "customer", Name: "Customer", Level: 1},
	{Code: "freelancer", Name: "Freelancer", Level: 1},
	{Code: "business", Name: "Business", Level: 1},
	{Code: "vendorb2b", Name: "Vendor B2B", Level: 1},
	{Code: "vendorb2c", Name: "Vendor B2C", Level: 1},
}

var seedModules = []module.CreateModuleRequest{
	{Name: "Users", Route: "/platform/users", Icon: "users", Position: 1},
	{Name: "Roles", Route: "/roles", Icon: "shield", Position: 2},
	{Name: "Modules", Route: "/modules", Icon: "grid", Position: 3},
	{Name: "Permissions", Route: "/permissions", Icon: "key", Position: 4},
	{Name: "Customers", Route: "/customers", Icon: "user", Position: 5},
	{Name: "Freelancers", Route: "/freelancers", Icon: "briefcase", Position: 6},
	{Name: "Businesses", Route: "/businesses", Icon: "building", Position: 7},
	{
		Name: "Vendors", Route: "/vendors", Icon: "store", Position: 8,
		SubModules: []module.SubModuleInput{
			{Name: "B2B", Route: "/vendors/b2b", Position: 1},
			{Name: "B2C", Route: "/vendors/b2c", Position: 2},
		},
	},
}

// staffViews are the management modules staff may read.
var staffViews = []string{"Users", "Roles", "Modules", "Permissions"}

type SeedAccount struct {
	Email    string
	Password string
}

type seeder struct {
	roles          *role.Service
	modules        *module.Service
	moduleRepo     module.RepositoryAPI
	permissions    *permission.Service
	permissionRepo permission.RepositoryAPI
	accounts       *principal.Service
	logger         *slog.Logger
}

func newSeeder(db *gorm.DB, bcryptCost int, lg *slog.Logger) *seeder {
	roleRepo := rolePostgres.NewRoleRepository(db)
	moduleRepo := modulePostgres.NewModuleRepository(db)
	permissionRepo := permissionPostgres.NewPermissionRepository(db)
	accountRepo := principalPostgres.NewAccountRepository(db)

	return &seeder{
		roles:          role.NewService(roleRepo, lg, permissionRepo, accountRepo),
		modules:        module.NewService(moduleRepo, permissionRepo, nil, lg),
		moduleRepo:     moduleRepo,
		permissions:    permission.NewService(permissionRepo, roleRepo, moduleRepo, nil, lg),
		permissionRepo: permissionRepo,
		accounts:       principal.NewService(accountRepo, roleRepo, auth.NewBcryptHasher(bcryptCost), lg),
		logger:         lg,
	}
}

// Run creates whatever is missing and leaves existing rows untouched.
func (s *seeder) Run(ctx context.Context, account SeedAccount) error {
	roles := make(map[string]*role.Role, len(seedRoles))
	for _, req := range seedRoles {
		r, err := s.ensureRole(ctx, req)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", req.Code, err)
		}
		roles[req.Code] = r
	}

	modules := make(map[string]int64, len(seedModules))
	for _, req := range seedModules {
		id, err := s.ensureModule(ctx, req)
		if err != nil {
			return fmt.Errorf("seed module %s: %w", req.Name, err)
		}
		modules[req.Name] = id
	}

	for name, id := range modules {
		if err := s.ensureGrant(ctx, roles[roleAdmin].ID, id, nil, permission.AllFlags()); err != nil {
			return fmt.Errorf("grant admin on %s: %w", name, err)
		}
		if err := s.grantSubModules(ctx, roles[roleAdmin].ID, id, permission.AllFlags()); err != nil {
			return fmt.Errorf("grant admin on %s submodules: %w", name, err)
		}
	}
	for _, name := range staffViews {
		if err := s.ensureGrant(ctx, roles[roleStaff].ID, modules[name], nil, permission.Flags{CanView: true}); err != nil {
			return fmt.Errorf("grant staff on %s: %w", name, err)
		}
	}

	if err := s.ensureSuperAdmin(ctx, account, roles[roleSuperAdmin]); err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}

	s.logger.Info("seed complete", "roles", len(roles), "modules", len(modules), "superadmin", account.Email)
	return nil
}

func (s *seeder) ensureRole(ctx context.Context, req role.CreateRoleRequest) (*role.Role, error) {
	existing, err := s.roles.GetByCode(ctx, req.Code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, role.ErrRoleNotFound) {
		return nil, err
	}
	return s.roles.Create(ctx, req)
}

func (s *seeder) ensureModule(ctx context.Context, req module.CreateModuleRequest) (int64, error) {
	rows, err := s.moduleRepo.FindLiveByNamesOrRoutes(ctx, []string{req.Name}, []string{req.Route})
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return rows[0].ID, nil
	}

	created, err := s.modules.Create(ctx, module.BulkCreateModulesRequest{Modules: []module.CreateModuleRequest{req}})
	if err != nil {
		return 0, err
	}
	return created[0].ID, nil
}

// grantSubModules grants flags on every live submodule of moduleID. A
// submodule check never falls back to the module row.
func (s *seeder) grantSubModules(ctx context.Context, roleID, moduleID int64, flags permission.Flags) error {
	row, err := s.moduleRepo.GetByID(ctx, moduleID)
	if err != nil || row == nil {
		return err
	}
	for _, sub := range row.SubModules {
		if sub.IsDeleted {
			continue
		}
		subID := sub.ID
		if err := s.ensureGrant(ctx, roleID, moduleID, &subID, flags); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) ensureGrant(ctx context.Context, roleID, moduleID int64, subModuleID *int64, flags permission.Flags) error {
	existing, err := s.permissionRepo.FindLive(ctx, roleID, moduleID, subModuleID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	_, err = s.permissions.Create(ctx, permission.BulkCreatePermissionsRequest{
		Permissions: []permission.CreatePermissionRequest{{
			RoleID:      roleID,
			ModuleID:    moduleID,
			SubModuleID: subModuleID,
			CanView:     flags.CanView,
			CanAdd:      flags.CanAdd,
			CanEdit:     flags.CanEdit,
			CanDelete:   flags.CanDelete,
			CanViewAll:  flags.CanViewAll,
		}},
	}, permission.Grantor{Type: "system"})
	return err
}

func (s *seeder) ensureSuperAdmin(ctx context.Context, account SeedAccount, superAdmin *role.Role) error {
	if account.Email == "" || len(account.Password) < 8 {
		return internal.NewValidationError("superadmin email and a password of at least 8 characters are required", internal.ErrCodeInvalidBody)
	}

	existing, err := s.accounts.FindForLogin(ctx, principal.TypeUser, account.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	_, err = s.accounts.Create(ctx, principal.TypeUser, principal.NewAccount{
		Email:    account.Email,
		Name:     "Super Admin",
		Password: account.Password,
		RoleID:   superAdmin.ID,
	})
	return err
}
