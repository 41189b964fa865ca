package principal

import "github.com/frahmantamala/marketplace/internal"

// NewAccount carries a validated sign-up or provisioning request.
type NewAccount struct {
	Email    string
	Name     string
	Phone    string
	Password string
	RoleID   int64
}

type CreatePlatformUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UpdateProfileRequest edits contact fields. A nil field is left unchanged.
type UpdateProfileRequest struct {
	Email *string `json:"email" validate:"omitempty,email,max=255"`
	Name  *string `json:"name" validate:"omitempty,min=1,max=150"`
	Phone *string `json:"phone" validate:"omitempty,max=30"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type ListQuery struct {
	Page     internal.Page
	IsActive *bool
	Search   string
}

type ListResult struct {
	Accounts []*Principal     `json:"accounts"`
	Meta     internal.PageMeta `json:"meta"`
}
