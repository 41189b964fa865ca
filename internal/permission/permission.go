package permission

import (
	"time"

	permissionDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/permission"
)

// Permission grants a role capabilities on a module, or on one submodule of
// it when SubModuleID is set.
type Permission struct {
	ID          int64  `json:"id"`
	RoleID      int64  `json:"role_id"`
	ModuleID    int64  `json:"module_id"`
	SubModuleID *int64 `json:"sub_module_id,omitempty"`
	Flags
	IsActive      bool       `json:"is_active"`
	IsDeleted     bool       `json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	GrantedBy     *int64     `json:"granted_by,omitempty"`
	GrantedByType string     `json:"granted_by_type,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Live reports whether the row takes part in access decisions.
func (p *Permission) Live() bool {
	return p != nil && p.IsActive && !p.IsDeleted
}

// Triple identifies the uniqueness slot a permission occupies.
type Triple struct {
	RoleID      int64
	ModuleID    int64
	SubModuleID int64
}

func (p *Permission) Triple() Triple {
	t := Triple{RoleID: p.RoleID, ModuleID: p.ModuleID}
	if p.SubModuleID != nil {
		t.SubModuleID = *p.SubModuleID
	}
	return t
}

func ToDataModel(p *Permission) *permissionDatamodel.Permission {
	return &permissionDatamodel.Permission{
		ID:            p.ID,
		RoleID:        p.RoleID,
		ModuleID:      p.ModuleID,
		SubModuleID:   p.SubModuleID,
		CanView:       p.CanView,
		CanAdd:        p.CanAdd,
		CanEdit:       p.CanEdit,
		CanDelete:     p.CanDelete,
		CanViewAll:    p.CanViewAll,
		IsActive:      p.IsActive,
		IsDeleted:     p.IsDeleted,
		DeletedAt:     p.DeletedAt,
		GrantedBy:     p.GrantedBy,
		GrantedByType: p.GrantedByType,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModel(p *permissionDatamodel.Permission) *Permission {
	return &Permission{
		ID:          p.ID,
		RoleID:      p.RoleID,
		ModuleID:    p.ModuleID,
		SubModuleID: p.SubModuleID,
		Flags: Flags{
			CanView:    p.CanView,
			CanAdd:     p.CanAdd,
			CanEdit:    p.CanEdit,
			CanDelete:  p.CanDelete,
			CanViewAll: p.CanViewAll,
		},
		IsActive:      p.IsActive,
		IsDeleted:     p.IsDeleted,
		DeletedAt:     p.DeletedAt,
		GrantedBy:     p.GrantedBy,
		GrantedByType: p.GrantedByType,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
