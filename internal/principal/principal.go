package principal

import (
	"errors"
	"strings"
	"time"

	principalDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/principal"
	"github.com/frahmantamala/marketplace/internal/role"
)

// Type tags which account table a principal lives in. The set is closed.
type Type string

const (
	TypeUser       Type = "user"
	TypeCustomer   Type = "customer"
	TypeFreelancer Type = "freelancer"
	TypeBusiness   Type = "business"
	TypeVendorB2B  Type = "vendorb2b"
	TypeVendorB2C  Type = "vendorb2c"
)

var ErrUnknownType = errors.New("unknown principal type")

var tables = map[Type]string{
	TypeUser:       principalDatamodel.TablePlatformUsers,
	TypeCustomer:   principalDatamodel.TableCustomers,
	TypeFreelancer: principalDatamodel.TableFreelancers,
	TypeBusiness:   principalDatamodel.TableBusinesses,
	TypeVendorB2B:  principalDatamodel.TableVendorsB2B,
	TypeVendorB2C:  principalDatamodel.TableVendorsB2C,
}

func AllTypes() []Type {
	return []Type{TypeUser, TypeCustomer, TypeFreelancer, TypeBusiness, TypeVendorB2B, TypeVendorB2C}
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tables[t]; !ok {
		return "", ErrUnknownType
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := tables[t]
	return ok
}

func (t Type) Table() (string, error) {
	table, ok := tables[t]
	if !ok {
		return "", ErrUnknownType
	}
	return table, nil
}

// SelfRegistering reports whether accounts of this type may sign up on their
// own. Platform users are provisioned by an administrator.
func (t Type) SelfRegistering() bool {
	return t.Valid() && t != TypeUser
}

func (t Type) String() string { return string(t) }

// Principal is an authenticated identity of any type together with its live role.
type Principal struct {
	ID           int64      `json:"id"`
	Type         Type       `json:"type"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	RoleID       int64      `json:"role_id"`
	Role         *role.Role `json:"role,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsDeleted    bool       `json:"-"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (p *Principal) Usable() bool {
	return p != nil && p.IsActive && !p.IsDeleted
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToDataModel(p *Principal) *principalDatamodel.Account {
	return &principalDatamodel.Account{
		ID:           p.ID,
		Email:        p.Email,
		Name:         p.Name,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
		RoleID:       p.RoleID,
		IsActive:     p.IsActive,
		IsDeleted:    p.IsDeleted,
		DeletedAt:    p.DeletedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func FromDataModel(t Type, a *principalDatamodel.Account) *Principal {
	return &Principal{
		ID:           a.ID,
		Type:         t,
		Email:        a.Email,
		Name:         a.Name,
		Phone:        a.Phone,
		PasswordHash: a.PasswordHash,
		RoleID:       a.RoleID,
		IsActive:     a.IsActive,
		IsDeleted:    a.IsDeleted,
		DeletedAt:    a.DeletedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
