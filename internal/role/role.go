package role

import (
	"strings"
	"time"

	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
)

// Role is the seniority and super-admin carrier attached to every principal.
type Role struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Level        int        `json:"level"`
	IsSuperAdmin bool       `json:"is_super_admin"`
	IsDeleted    bool       `json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Usable reports whether principals holding this role may authenticate.
func (r *Role) Usable() bool {
	return r != nil && !r.IsDeleted
}

// MeetsLevel reports whether the role is at least min in seniority.
func (r *Role) MeetsLevel(min int) bool {
	return r.Level >= min
}

func (r *Role) HasCode(codes ...string) bool {
	for _, c := range codes {
		if strings.EqualFold(r.Code, c) {
			return true
		}
	}
	return false
}

func (r *Role) MarkDeleted(at time.Time) {
	r.IsDeleted = true
	r.DeletedAt = &at
}

func (r *Role) Restore() {
	r.IsDeleted = false
	r.DeletedAt = nil
}

func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	return &roleDatamodel.Role{
		ID:           r.ID,
		Code:         r.Code,
		Name:         r.Name,
		Description:  r.Description,
		Level:        r.Level,
		IsSuperAdmin: r.IsSuperAdmin,
		IsDeleted:    r.IsDeleted,
		DeletedAt:    r.DeletedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	return &Role{
		ID:           r.ID,
		Code:         r.Code,
		Name:         r.Name,
		Description:  r.Description,
		Level:        r.Level,
		IsSuperAdmin: r.IsSuperAdmin,
		IsDeleted:    r.IsDeleted,
		DeletedAt:    r.DeletedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
