package permission

import "github.com/frahmantamala/marketplace/internal"

type CreatePermissionRequest struct {
	RoleID      int64  `json:"role_id" validate:"required,gt=0"`
	ModuleID    int64  `json:"module_id" validate:"required,gt=0"`
	SubModuleID *int64 `json:"sub_module_id" validate:"omitempty,gt=0"`
	CanView     bool   `json:"can_view"`
	CanAdd      bool   `json:"can_add"`
	CanEdit     bool   `json:"can_edit"`
	CanDelete   bool   `json:"can_delete"`
	CanViewAll  bool   `json:"can_view_all"`
	IsActive    *bool  `json:"is_active"`
}

type BulkCreatePermissionsRequest struct {
	Permissions []CreatePermissionRequest `json:"permissions" validate:"required,min=1,max=200,dive"`
}

type UpdatePermissionRequest struct {
	CanView    *bool `json:"can_view"`
	CanAdd     *bool `json:"can_add"`
	CanEdit    *bool `json:"can_edit"`
	CanDelete  *bool `json:"can_delete"`
	CanViewAll *bool `json:"can_view_all"`
	IsActive   *bool `json:"is_active"`
}

type ListQuery struct {
	Page           internal.Page
	RoleCode       string
	ModuleID       *int64
	IsActive       *bool
	IncludeDeleted bool
}

type ListResult struct {
	Permissions []*Permission    `json:"permissions"`
	Meta        internal.PageMeta `json:"meta"`
}

// Grantor identifies who issued a permission.
type Grantor struct {
	ID   int64
	Type string
}
