package role

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	roleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/role"
)

var (
	ErrRoleNotFound = internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
	ErrRoleExists   = internal.NewConflictError("Role code already exists", internal.ErrCodeRoleExists)
	ErrRoleInUse    = internal.NewConflictError("Role is still referenced by permissions or accounts", internal.ErrCodeRoleInUse)
	ErrNotDeleted   = internal.NewValidationError("Role is not deleted", internal.ErrCodeNotDeleted)
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
	GetByCode(ctx context.Context, code string) (*roleDatamodel.Role, error)
	List(ctx context.Context, page internal.Page, includeDeleted bool) ([]*roleDatamodel.Role, int64, error)
	Create(ctx context.Context, role *roleDatamodel.Role) error
	Update(ctx context.Context, role *roleDatamodel.Role) error
	Delete(ctx context.Context, id int64) error
}

// UsageCounter reports how many live rows elsewhere reference a role.
type UsageCounter interface {
	CountByRole(ctx context.Context, roleID int64) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	usage  []UsageCounter
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger, usage ...UsageCounter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		usage:  usage,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req CreateRoleRequest) (*Role, error) {
	r := &Role{
		Code:         NormalizeCode(req.Code),
		Name:         req.Name,
		Description:  req.Description,
		Level:        req.Level,
		IsSuperAdmin: req.IsSuperAdmin,
	}

	existing, err := s.repo.GetByCode(ctx, r.Code)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role code", err)
	}
	if existing != nil {
		return nil, ErrRoleExists
	}

	dm := ToDataModel(r)
	if err := s.repo.Create(ctx, dm); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "role_id", dm.ID, "code", dm.Code, "level", dm.Level)
	return FromDataModel(dm), nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRoleRequest) (*Role, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.IsDeleted {
		return nil, ErrRoleNotFound
	}

	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.Level != nil {
		r.Level = *req.Level
	}
	if req.IsSuperAdmin != nil {
		r.IsSuperAdmin = *req.IsSuperAdmin
	}

	dm := ToDataModel(r)
	if err := s.repo.Update(ctx, dm); err != nil {
		return nil, internal.NewInternalError("failed to update role", err)
	}
	return FromDataModel(dm), nil
}

func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if r.IsDeleted {
		return ErrRoleNotFound
	}

	r.MarkDeleted(s.now())
	if err := s.repo.Update(ctx, ToDataModel(r)); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}
	s.logger.Info("role soft deleted", "role_id", id)
	return nil
}

func (s *Service) Restore(ctx context.Context, id int64) (*Role, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsDeleted {
		return nil, ErrNotDeleted
	}

	r.Restore()
	dm := ToDataModel(r)
	if err := s.repo.Update(ctx, dm); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, internal.NewInternalError("failed to restore role", err)
	}
	s.logger.Info("role restored", "role_id", id)
	return FromDataModel(dm), nil
}

// PermanentDelete removes the row. It is refused while anything references it.
func (s *Service) PermanentDelete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	for _, counter := range s.usage {
		n, err := counter.CountByRole(ctx, id)
		if err != nil {
			return internal.NewInternalError("failed to check role usage", err)
		}
		if n > 0 {
			return ErrRoleInUse
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}
	s.logger.Info("role permanently deleted", "role_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.load(ctx, id)
}

// GetByCode returns a live role or ErrRoleNotFound.
func (s *Service) GetByCode(ctx context.Context, code string) (*Role, error) {
	dm, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, internal.NewInternalError("failed to get role", err)
	}
	if dm == nil {
		return nil, ErrRoleNotFound
	}
	return FromDataModel(dm), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page := q.Page.Normalize()
	rows, total, err := s.repo.List(ctx, page, q.IncludeDeleted)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}

	roles := make([]*Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, FromDataModel(row))
	}
	return &ListResult{Roles: roles, Meta: internal.NewPageMeta(page, total)}, nil
}

func (s *Service) load(ctx context.Context, id int64) (*Role, error) {
	dm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get role", err)
	}
	if dm == nil {
		return nil, ErrRoleNotFound
	}
	return FromDataModel(dm), nil
}
