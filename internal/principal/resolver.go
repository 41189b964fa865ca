package principal

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/marketplace/internal"
	principalDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/principal"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
	"github.com/frahmantamala/marketplace/internal/role"
)

var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrPrincipalInactive = errors.New("principal inactive or deleted")
	ErrRoleUnavailable   = errors.New("principal role missing or deleted")
)

// RoleLookup is satisfied by the role repository.
type RoleLookup interface {
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
}

type Resolver struct {
	accounts RepositoryAPI
	roles    RoleLookup
}

func NewResolver(accounts RepositoryAPI, roles RoleLookup) *Resolver {
	return &Resolver{accounts: accounts, roles: roles}
}

// Resolve loads the live principal and its live role. Every identity failure
// is one of the sentinel errors above; anything else is an infrastructure fault.
func (r *Resolver) Resolve(ctx context.Context, t Type, id int64) (*Principal, error) {
	table, err := t.Table()
	if err != nil {
		return nil, err
	}

	row, err := r.accounts.FindByID(ctx, table, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", t, id, err)
	}
	if row == nil {
		return nil, ErrPrincipalNotFound
	}

	p := FromDataModel(t, row)
	if !p.Usable() {
		return nil, ErrPrincipalInactive
	}

	if err := r.attachRole(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Resolver) attachRole(ctx context.Context, p *Principal) error {
	rr, err := r.roles.GetByID(ctx, p.RoleID)
	if err != nil {
		return fmt.Errorf("load role %d: %w", p.RoleID, err)
	}
	if rr == nil || rr.IsDeleted {
		return ErrRoleUnavailable
	}
	p.Role = role.FromDataModel(rr)
	return nil
}

// IsIdentityError reports whether err means "this credential names nobody usable".
func IsIdentityError(err error) bool {
	return errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrPrincipalNotFound) ||
		errors.Is(err, ErrPrincipalInactive) ||
		errors.Is(err, ErrRoleUnavailable)
}

// RepositoryAPI is implemented once and parameterized by table name.
type RepositoryAPI interface {
	FindByID(ctx context.Context, table string, id int64) (*principalDatamodel.Account, error)
	FindByEmail(ctx context.Context, table, email string, withCredential bool) (*principalDatamodel.Account, error)
	Create(ctx context.Context, table string, account *principalDatamodel.Account) error
	Update(ctx context.Context, table string, account *principalDatamodel.Account) error
	CountByRole(ctx context.Context, roleID int64) (int64, error)
	List(ctx context.Context, table string, filter ListFilter) ([]*principalDatamodel.Account, int64, error)
	// FindCredential returns the password hash of a live account, or "".
	FindCredential(ctx context.Context, table string, id int64) (string, error)
	UpdateCredential(ctx context.Context, table string, id int64, hash string) error
}

// ListFilter always excludes deleted accounts.
type ListFilter struct {
	Page     internal.Page
	IsActive *bool
	Search   string
}
