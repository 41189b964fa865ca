package permission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	permissionDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/permission"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
	"github.com/frahmantamala/marketplace/internal/role"
)

var (
	ErrPermissionNotFound = internal.NewNotFoundError("Permission not found", internal.ErrCodePermissionNotFound)
	ErrPermissionExists   = internal.NewConflictError("Permission already exists", internal.ErrCodePermissionExists)
	ErrNotDeleted         = internal.NewValidationError("Permission is not deleted", internal.ErrCodeNotDeleted)
	ErrUnknownRole        = internal.NewValidationFieldError("role_id", "role does not exist", internal.ErrCodeRoleNotFound)
	ErrUnknownModule      = internal.NewValidationFieldError("module_id", "module does not exist", internal.ErrCodeModuleNotFound)
	ErrUnknownSubModule   = internal.NewValidationFieldError("sub_module_id", "submodule does not exist in module", internal.ErrCodeSubModuleNotFound)
)

type ListFilter struct {
	Page           internal.Page
	RoleCode       string
	ModuleID       *int64
	IsActive       *bool
	IncludeDeleted bool
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*permissionDatamodel.Permission, error)
	// FindLive returns the non-deleted row for the triple regardless of is_active.
	FindLive(ctx context.Context, roleID, moduleID int64, subModuleID *int64) (*permissionDatamodel.Permission, error)
	// FindActive returns the row only if it is both active and non-deleted.
	FindActive(ctx context.Context, roleID, moduleID int64, subModuleID *int64) (*permissionDatamodel.Permission, error)
	List(ctx context.Context, filter ListFilter) ([]*permissionDatamodel.Permission, int64, error)
	CreateMany(ctx context.Context, rows []*permissionDatamodel.Permission) error
	Update(ctx context.Context, row *permissionDatamodel.Permission) error
	Delete(ctx context.Context, id int64) error
}

type RoleLookup interface {
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
}

type ModuleLookup interface {
	GetByID(ctx context.Context, id int64) (*moduleDatamodel.Module, error)
}

type Service struct {
	repo         RepositoryAPI
	roles        RoleLookup
	modules      ModuleLookup
	capabilities CapabilityReader
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(repo RepositoryAPI, roles RoleLookup, modules ModuleLookup, capabilities CapabilityReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		roles:        roles,
		modules:      modules,
		capabilities: capabilities,
		logger:       logger,
		now:          time.Now,
	}
}

// Create grants every permission of the batch or none. A triple that already
// has a live row, in storage or earlier in the batch, is a Conflict.
func (s *Service) Create(ctx context.Context, req BulkCreatePermissionsRequest, by Grantor) ([]*Permission, error) {
	rows := make([]*permissionDatamodel.Permission, 0, len(req.Permissions))
	seen := make(map[Triple]bool, len(req.Permissions))

	for _, in := range req.Permissions {
		if err := s.validateRefs(ctx, in.RoleID, in.ModuleID, in.SubModuleID); err != nil {
			return nil, err
		}

		p := &Permission{
			RoleID:      in.RoleID,
			ModuleID:    in.ModuleID,
			SubModuleID: in.SubModuleID,
			Flags: Flags{
				CanView:    in.CanView,
				CanAdd:     in.CanAdd,
				CanEdit:    in.CanEdit,
				CanDelete:  in.CanDelete,
				CanViewAll: in.CanViewAll,
			},
			IsActive:      true,
			GrantedByType: by.Type,
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if by.ID != 0 {
			id := by.ID
			p.GrantedBy = &id
		}

		if seen[p.Triple()] {
			return nil, ErrPermissionExists
		}
		seen[p.Triple()] = true

		existing, err := s.repo.FindLive(ctx, p.RoleID, p.ModuleID, p.SubModuleID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check permission", err)
		}
		if existing != nil {
			return nil, ErrPermissionExists
		}

		rows = append(rows, ToDataModel(p))
	}

	// the partial unique index settles races the pre-check cannot see
	if err := s.repo.CreateMany(ctx, rows); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrPermissionExists
		}
		return nil, internal.NewInternalError("failed to create permissions", err)
	}

	out := make([]*Permission, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	s.logger.Info("permissions granted", "count", len(out), "granted_by", by.ID, "granted_by_type", by.Type)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdatePermissionRequest) (*Permission, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, ErrPermissionNotFound
	}

	if req.CanView != nil {
		p.CanView = *req.CanView
	}
	if req.CanAdd != nil {
		p.CanAdd = *req.CanAdd
	}
	if req.CanEdit != nil {
		p.CanEdit = *req.CanEdit
	}
	if req.CanDelete != nil {
		p.CanDelete = *req.CanDelete
	}
	if req.CanViewAll != nil {
		p.CanViewAll = *req.CanViewAll
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	row := ToDataModel(p)
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to update permission", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if p.IsDeleted {
		return ErrPermissionNotFound
	}

	at := s.now()
	p.IsDeleted = true
	p.DeletedAt = &at
	if err := s.repo.Update(ctx, ToDataModel(p)); err != nil {
		return internal.NewInternalError("failed to delete permission", err)
	}
	s.logger.Info("permission soft deleted", "permission_id", id)
	return nil
}

// Restore revives a soft-deleted row unless its triple has been taken since.
func (s *Service) Restore(ctx context.Context, id int64) (*Permission, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsDeleted {
		return nil, ErrNotDeleted
	}

	existing, err := s.repo.FindLive(ctx, p.RoleID, p.ModuleID, p.SubModuleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check permission", err)
	}
	if existing != nil {
		return nil, ErrPermissionExists
	}

	p.IsDeleted = false
	p.DeletedAt = nil
	row := ToDataModel(p)
	if err := s.repo.Update(ctx, row); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrPermissionExists
		}
		return nil, internal.NewInternalError("failed to restore permission", err)
	}
	s.logger.Info("permission restored", "permission_id", id)
	return FromDataModel(row), nil
}

func (s *Service) HardDelete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete permission", err)
	}
	s.logger.Info("permission permanently deleted", "permission_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Permission, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page := q.Page.Normalize()
	rows, total, err := s.repo.List(ctx, ListFilter{
		Page:           page,
		RoleCode:       role.NormalizeCode(q.RoleCode),
		ModuleID:       q.ModuleID,
		IsActive:       q.IsActive,
		IncludeDeleted: q.IncludeDeleted,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}

	out := make([]*Permission, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return &ListResult{Permissions: out, Meta: internal.NewPageMeta(page, total)}, nil
}

// Capabilities returns the bulk capability map of a role.
func (s *Service) Capabilities(ctx context.Context, r *role.Role) (*CapabilitySet, error) {
	rows, err := s.capabilities.ListCapabilities(ctx, r.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load capabilities", err)
	}
	return &CapabilitySet{
		RoleCode:     r.Code,
		IsSuperAdmin: r.IsSuperAdmin,
		Permissions:  BuildCapabilityMap(rows),
	}, nil
}

func (s *Service) validateRefs(ctx context.Context, roleID, moduleID int64, subModuleID *int64) error {
	rr, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return internal.NewInternalError("failed to load role", err)
	}
	if rr == nil || rr.IsDeleted {
		return ErrUnknownRole
	}

	m, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		return internal.NewInternalError("failed to load module", err)
	}
	if m == nil || m.IsDeleted {
		return ErrUnknownModule
	}

	if subModuleID != nil {
		found := false
		for _, sub := range m.SubModules {
			if sub.ID == *subModuleID && !sub.IsDeleted {
				found = true
				break
			}
		}
		if !found {
			return ErrUnknownSubModule
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Permission, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get permission", err)
	}
	if row == nil {
		return nil, ErrPermissionNotFound
	}
	return FromDataModel(row), nil
}
