package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
	"github.com/frahmantamala/marketplace/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

var _ role.RepositoryAPI = (*RoleRepository)(nil)

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error) {
	var row roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*roleDatamodel.Role, error) {
	var row roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("code = ? AND is_deleted = ?", code, false).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *RoleRepository) List(ctx context.Context, page internal.Page, includeDeleted bool) ([]*roleDatamodel.Role, int64, error) {
	q := r.db.WithContext(ctx).Model(&roleDatamodel.Role{})
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*roleDatamodel.Role
	err := q.Order("level DESC, id ASC").Limit(page.Limit).Offset(page.Offset()).Find(&rows).Error
	return rows, total, err
}

func (r *RoleRepository) Create(ctx context.Context, row *roleDatamodel.Role) error {
	return datamodel.TranslateError(r.db.WithContext(ctx).Create(row).Error)
}

func (r *RoleRepository) Update(ctx context.Context, row *roleDatamodel.Role) error {
	return datamodel.TranslateError(r.db.WithContext(ctx).Save(row).Error)
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&roleDatamodel.Role{}, id).Error
}
