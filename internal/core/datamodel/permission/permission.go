package permission

import "time"

type Permission struct {
	ID            int64      `gorm:"primaryKey"`
	RoleID        int64      `gorm:"column:role_id;not null;index"`
	ModuleID      int64      `gorm:"column:module_id;not null;index"`
	SubModuleID   *int64     `gorm:"column:sub_module_id"`
	CanView       bool       `gorm:"column:can_view;not null"`
	CanAdd        bool       `gorm:"column:can_add;not null"`
	CanEdit       bool       `gorm:"column:can_edit;not null"`
	CanDelete     bool       `gorm:"column:can_delete;not null"`
	CanViewAll    bool       `gorm:"column:can_view_all;not null"`
	IsActive      bool       `gorm:"column:is_active;not null"`
	IsDeleted     bool       `gorm:"column:is_deleted;not null"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
	GrantedBy     *int64     `gorm:"column:granted_by"`
	GrantedByType string     `gorm:"column:granted_by_type;size:20"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Permission) TableName() string { return "permissions" }
