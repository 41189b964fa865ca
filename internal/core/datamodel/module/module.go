package module

import "time"

type Module struct {
	ID              int64       `gorm:"primaryKey"`
	Name            string      `gorm:"column:name;size:50;not null"`
	Slug            string      `gorm:"column:slug;size:60;not null"`
	Description     string      `gorm:"column:description;size:300"`
	Icon            string      `gorm:"column:icon;size:100"`
	Route           string      `gorm:"column:route;size:200;not null"`
	Position        int         `gorm:"column:position;not null"`
	IsActive        bool        `gorm:"column:is_active;not null"`
	DashboardView   bool        `gorm:"column:dashboard_view;not null"`
	IsDeleted       bool        `gorm:"column:is_deleted;not null;index"`
	DeletedAt       *time.Time  `gorm:"column:deleted_at"`
	NextSubModuleID int64       `gorm:"column:next_sub_module_id;not null"`
	SubModules      []SubModule `gorm:"foreignKey:ModuleID;references:ID"`
	CreatedAt       time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Module) TableName() string { return "modules" }

// SubModule rows are owned by their module; ID is only unique within it.
type SubModule struct {
	ModuleID      int64      `gorm:"column:module_id;primaryKey;autoIncrement:false"`
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name          string     `gorm:"column:name;size:50;not null"`
	Route         string     `gorm:"column:route;size:200"`
	Icon          string     `gorm:"column:icon;size:100"`
	Position      int        `gorm:"column:position;not null"`
	IsActive      bool       `gorm:"column:is_active;not null"`
	DashboardView bool       `gorm:"column:dashboard_view;not null"`
	IsDeleted     bool       `gorm:"column:is_deleted;not null"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (SubModule) TableName() string { return "sub_modules" }
