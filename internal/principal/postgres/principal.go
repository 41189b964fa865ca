package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	principalDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/principal"
	"github.com/frahmantamala/marketplace/internal/principal"
)

// AccountRepository serves every principal table; callers pass the table
// resolved from principal.Type so table names never come from user input.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ principal.RepositoryAPI = (*AccountRepository)(nil)

func (r *AccountRepository) FindByID(ctx context.Context, table string, id int64) (*principalDatamodel.Account, error) {
	var row principalDatamodel.Account
	err := r.db.WithContext(ctx).Table(table).Omit("password_hash").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, table, email string, withCredential bool) (*principalDatamodel.Account, error) {
	q := r.db.WithContext(ctx).Table(table)
	if !withCredential {
		q = q.Omit("password_hash")
	}

	var row principalDatamodel.Account
	err := q.Where("email = ? AND is_deleted = ?", email, false).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *AccountRepository) Create(ctx context.Context, table string, row *principalDatamodel.Account) error {
	return datamodel.TranslateError(r.db.WithContext(ctx).Table(table).Create(row).Error)
}

// Update writes everything except the credential hash, which FindByID never loads.
func (r *AccountRepository) Update(ctx context.Context, table string, row *principalDatamodel.Account) error {
	err := r.db.WithContext(ctx).Table(table).
		Where("id = ?", row.ID).
		Select("email", "name", "phone", "role_id", "is_active", "is_deleted", "deleted_at", "updated_at").
		Updates(row).Error
	return datamodel.TranslateError(err)
}

func (r *AccountRepository) List(ctx context.Context, table string, filter principal.ListFilter) ([]*principalDatamodel.Account, int64, error) {
	q := r.db.WithContext(ctx).Table(table).Where("is_deleted = ?", false)
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("(LOWER(email) LIKE ? OR LOWER(name) LIKE ?)", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*principalDatamodel.Account
	err := q.Omit("password_hash").
		Order("id ASC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset()).
		Find(&rows).Error
	return rows, total, err
}

func (r *AccountRepository) FindCredential(ctx context.Context, table string, id int64) (string, error) {
	var hashes []string
	err := r.db.WithContext(ctx).Table(table).
		Where("id = ? AND is_deleted = ?", id, false).
		Pluck("password_hash", &hashes).Error
	if err != nil || len(hashes) == 0 {
		return "", err
	}
	return hashes[0], nil
}

func (r *AccountRepository) UpdateCredential(ctx context.Context, table string, id int64, hash string) error {
	return r.db.WithContext(ctx).Table(table).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now()}).Error
}

// CountByRole counts live accounts of every type holding roleID.
func (r *AccountRepository) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	var total int64
	for _, table := range principalDatamodel.Tables {
		var n int64
		err := r.db.WithContext(ctx).Table(table).
			Where("role_id = ? AND is_deleted = ?", roleID, false).
			Count(&n).Error
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
