package datamodel

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	permissionDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/permission"
	principalDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/principal"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
)

// ErrDuplicate is returned by repositories when a write hits one of the
// partial unique indexes below.
var ErrDuplicate = errors.New("duplicate record")

// softUniqueIndexes mirror db/migrations. They only constrain live rows so a
// soft-deleted record never blocks re-creation.
var softUniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_roles_code_live ON roles (code) WHERE is_deleted = false`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_modules_name_live ON modules (name) WHERE is_deleted = false`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_modules_route_live ON modules (route) WHERE is_deleted = false`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_permissions_triple_live ON permissions (role_id, module_id, COALESCE(sub_module_id, 0)) WHERE is_deleted = false`,
}

// Migrate builds the schema through gorm. Production uses goose migrations;
// this path serves tests and local sqlite runs.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&roleDatamodel.Role{},
		&moduleDatamodel.Module{},
		&moduleDatamodel.SubModule{},
		&permissionDatamodel.Permission{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, table := range principalDatamodel.Tables {
		if err := db.Table(table).AutoMigrate(&principalDatamodel.Account{}); err != nil {
			return fmt.Errorf("auto migrate %s: %w", table, err)
		}
		stmt := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_email_live ON %s (email) WHERE is_deleted = false`, table, table)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}

	for _, stmt := range softUniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index: %w", err)
		}
	}
	return nil
}

// TranslateError maps driver unique violations to ErrDuplicate. gorm's
// TranslateError option covers postgres and sqlite; the message check covers
// connections opened without it.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return ErrDuplicate
	}
	return err
}
