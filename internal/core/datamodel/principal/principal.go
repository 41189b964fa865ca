package principal

import "time"

// Account is the row shape shared by every principal table. The table name
// is chosen per principal type at query time.
type Account struct {
	ID           int64      `gorm:"primaryKey"`
	Email        string     `gorm:"column:email;size:255;not null"`
	Name         string     `gorm:"column:name;size:150;not null"`
	Phone        string     `gorm:"column:phone;size:30"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	RoleID       int64      `gorm:"column:role_id;not null;index"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	IsDeleted    bool       `gorm:"column:is_deleted;not null"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

const (
	TablePlatformUsers = "platform_users"
	TableCustomers     = "customers"
	TableFreelancers   = "freelancers"
	TableBusinesses    = "businesses"
	TableVendorsB2B    = "vendors_b2b"
	TableVendorsB2C    = "vendors_b2c"
)

var Tables = []string{
	TablePlatformUsers,
	TableCustomers,
	TableFreelancers,
	TableBusinesses,
	TableVendorsB2B,
	TableVendorsB2C,
}
