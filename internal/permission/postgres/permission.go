package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	permissionDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/permission"
	"github.com/frahmantamala/marketplace/internal/permission"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

var _ permission.RepositoryAPI = (*PermissionRepository)(nil)

func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*permissionDatamodel.Permission, error) {
	var row permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func tripleScope(roleID, moduleID int64, subModuleID *int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("role_id = ? AND module_id = ? AND is_deleted = ?", roleID, moduleID, false)
		if subModuleID == nil {
			return db.Where("sub_module_id IS NULL")
		}
		return db.Where("sub_module_id = ?", *subModuleID)
	}
}

func (r *PermissionRepository) FindLive(ctx context.Context, roleID, moduleID int64, subModuleID *int64) (*permissionDatamodel.Permission, error) {
	var row permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Scopes(tripleScope(roleID, moduleID, subModuleID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *PermissionRepository) FindActive(ctx context.Context, roleID, moduleID int64, subModuleID *int64) (*permissionDatamodel.Permission, error) {
	var row permissionDatamodel.Permission
	err := r.db.WithContext(ctx).
		Scopes(tripleScope(roleID, moduleID, subModuleID)).
		Where("is_active = ?", true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *PermissionRepository) List(ctx context.Context, filter permission.ListFilter) ([]*permissionDatamodel.Permission, int64, error) {
	q := r.db.WithContext(ctx).Model(&permissionDatamodel.Permission{})
	if filter.RoleCode != "" {
		q = q.Joins("JOIN roles ON roles.id = permissions.role_id").
			Where("roles.code = ? AND roles.is_deleted = ?", filter.RoleCode, false)
	}
	if !filter.IncludeDeleted {
		q = q.Where("permissions.is_deleted = ?", false)
	}
	if filter.ModuleID != nil {
		q = q.Where("permissions.module_id = ?", *filter.ModuleID)
	}
	if filter.IsActive != nil {
		q = q.Where("permissions.is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*permissionDatamodel.Permission
	err := q.Select("permissions.*").
		Order("permissions.role_id ASC, permissions.module_id ASC, permissions.id ASC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset()).
		Find(&rows).Error
	return rows, total, err
}

func (r *PermissionRepository) CreateMany(ctx context.Context, rows []*permissionDatamodel.Permission) error {
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	return datamodel.TranslateError(err)
}

func (r *PermissionRepository) Update(ctx context.Context, row *permissionDatamodel.Permission) error {
	return datamodel.TranslateError(r.db.WithContext(ctx).Save(row).Error)
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&permissionDatamodel.Permission{}, id).Error
}

// CountByRole counts rows of any state; a role cannot be purged while history references it.
func (r *PermissionRepository) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&permissionDatamodel.Permission{}).
		Where("role_id = ?", roleID).
		Count(&n).Error
	return n, err
}

func (r *PermissionRepository) CountByModule(ctx context.Context, moduleID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&permissionDatamodel.Permission{}).
		Where("module_id = ? AND is_deleted = ?", moduleID, false).
		Count(&n).Error
	return n, err
}

func (r *PermissionRepository) CountBySubModule(ctx context.Context, moduleID, subModuleID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&permissionDatamodel.Permission{}).
		Where("module_id = ? AND sub_module_id = ? AND is_deleted = ?", moduleID, subModuleID, false).
		Count(&n).Error
	return n, err
}

func (r *PermissionRepository) ModuleIDsForRole(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&permissionDatamodel.Permission{}).
		Where("role_id = ? AND is_active = ? AND is_deleted = ?", roleID, true, false).
		Distinct().
		Pluck("module_id", &ids).Error
	return ids, err
}
