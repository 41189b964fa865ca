package role

import "time"

type Role struct {
	ID           int64      `gorm:"primaryKey"`
	Code         string     `gorm:"column:code;size:50;not null"`
	Name         string     `gorm:"column:name;size:100;not null"`
	Description  string     `gorm:"column:description;size:300"`
	Level        int        `gorm:"column:level;not null"`
	IsSuperAdmin bool       `gorm:"column:is_super_admin;not null"`
	IsDeleted    bool       `gorm:"column:is_deleted;not null;index"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string { return "roles" }
