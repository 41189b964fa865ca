package role

import "github.com/frahmantamala/marketplace/internal"

type CreateRoleRequest struct {
	Code         string `json:"code" validate:"required,min=2,max=50"`
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=300"`
	Level        int    `json:"level" validate:"gte=0,lte=1000"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

type UpdateRoleRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=300"`
	Level        *int    `json:"level" validate:"omitempty,gte=0,lte=1000"`
	IsSuperAdmin *bool   `json:"is_super_admin"`
}

type ListQuery struct {
	Page           internal.Page
	IncludeDeleted bool
}

type ListResult struct {
	Roles []*Role          `json:"roles"`
	Meta  internal.PageMeta `json:"meta"`
}
