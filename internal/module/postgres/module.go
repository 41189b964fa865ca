package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	"github.com/frahmantamala/marketplace/internal/module"
)

type ModuleRepository struct {
	db *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

var _ module.RepositoryAPI = (*ModuleRepository)(nil)

func withSubModules(db *gorm.DB) *gorm.DB {
	return db.Preload("SubModules", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC, id ASC")
	})
}

func (r *ModuleRepository) GetByID(ctx context.Context, id int64) (*moduleDatamodel.Module, error) {
	var row moduleDatamodel.Module
	err := withSubModules(r.db.WithContext(ctx)).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ModuleRepository) GetActiveByName(ctx context.Context, name string) (*moduleDatamodel.Module, error) {
	var row moduleDatamodel.Module
	err := withSubModules(r.db.WithContext(ctx)).
		Where("name = ? AND is_active = ? AND is_deleted = ?", name, true, false).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ModuleRepository) FindLiveByNamesOrRoutes(ctx context.Context, names, routes []string) ([]*moduleDatamodel.Module, error) {
	var rows []*moduleDatamodel.Module
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where(r.db.Where("name IN ?", names).Or("route IN ?", routes)).
		Find(&rows).Error
	return rows, err
}

func (r *ModuleRepository) List(ctx context.Context, filter module.ListFilter) ([]*moduleDatamodel.Module, int64, error) {
	q := r.db.WithContext(ctx).Model(&moduleDatamodel.Module{})
	if !filter.IncludeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*moduleDatamodel.Module
	err := withSubModules(q).
		Order("position ASC, id ASC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset()).
		Find(&rows).Error
	return rows, total, err
}

func (r *ModuleRepository) ListActive(ctx context.Context) ([]*moduleDatamodel.Module, error) {
	var rows []*moduleDatamodel.Module
	err := withSubModules(r.db.WithContext(ctx)).
		Where("is_active = ? AND is_deleted = ?", true, false).
		Order("position ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ModuleRepository) CreateMany(ctx context.Context, rows []*moduleDatamodel.Module) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				return err
			}
			if err := createSubModules(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return datamodel.TranslateError(err)
}

// Mutate loads module id under a row lock, hands it to fn and writes the
// result back in the same transaction. It returns nil when no row exists.
// Submodules fn appends are inserted rather than upserted, so two writers
// that picked the same id fail with ErrDuplicate instead of overwriting.
func (r *ModuleRepository) Mutate(ctx context.Context, id int64, fn func(row *moduleDatamodel.Module) error) (*moduleDatamodel.Module, error) {
	var out *moduleDatamodel.Module
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row moduleDatamodel.Module
		err := withSubModules(tx.Clauses(clause.Locking{Strength: "UPDATE"})).
			Where("id = ?", id).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		stored := make(map[int64]bool, len(row.SubModules))
		for _, sub := range row.SubModules {
			stored[sub.ID] = true
		}
		if err := fn(&row); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&row).Error; err != nil {
			return err
		}
		for i := range row.SubModules {
			sub := &row.SubModules[i]
			sub.ModuleID = row.ID
			write := tx.Create
			if stored[sub.ID] {
				write = tx.Save
			}
			if err := write(sub).Error; err != nil {
				return err
			}
		}
		out = &row
		return nil
	})
	if err != nil {
		return nil, datamodel.TranslateError(err)
	}
	return out, nil
}

func (r *ModuleRepository) UpdatePositions(ctx context.Context, positions map[int64]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, pos := range positions {
			err := tx.Model(&moduleDatamodel.Module{}).
				Where("id = ? AND is_deleted = ?", id, false).
				Update("position", pos).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func createSubModules(tx *gorm.DB, row *moduleDatamodel.Module) error {
	if len(row.SubModules) == 0 {
		return nil
	}
	for i := range row.SubModules {
		row.SubModules[i].ModuleID = row.ID
	}
	return tx.Create(&row.SubModules).Error
}
