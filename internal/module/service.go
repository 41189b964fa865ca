package module

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	"github.com/frahmantamala/marketplace/internal/core/events"
	"github.com/frahmantamala/marketplace/internal/role"
)

var (
	ErrModuleNotFound    = internal.NewNotFoundError("Module not found", internal.ErrCodeModuleNotFound)
	ErrModuleExists      = internal.NewConflictError("Module with this name or route already exists", internal.ErrCodeModuleExists)
	ErrModuleInUse       = internal.NewConflictError("Module is referenced by active permissions", internal.ErrCodeModuleInUse)
	ErrSubModuleNotFound = internal.NewNotFoundError("Submodule not found", internal.ErrCodeSubModuleNotFound)
	ErrSubModuleExists   = internal.NewConflictError("Submodule with this name already exists", internal.ErrCodeSubModuleExists)
	ErrSubModuleInUse    = internal.NewConflictError("Submodule is referenced by active permissions", internal.ErrCodeModuleInUse)
	ErrNotDeleted        = internal.NewValidationError("Module is not deleted", internal.ErrCodeNotDeleted)
)

type ListFilter struct {
	Page           internal.Page
	IsActive       *bool
	IncludeDeleted bool
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*moduleDatamodel.Module, error)
	GetActiveByName(ctx context.Context, name string) (*moduleDatamodel.Module, error)
	FindLiveByNamesOrRoutes(ctx context.Context, names, routes []string) ([]*moduleDatamodel.Module, error)
	List(ctx context.Context, filter ListFilter) ([]*moduleDatamodel.Module, int64, error)
	ListActive(ctx context.Context) ([]*moduleDatamodel.Module, error)
	CreateMany(ctx context.Context, modules []*moduleDatamodel.Module) error
	Mutate(ctx context.Context, id int64, fn func(row *moduleDatamodel.Module) error) (*moduleDatamodel.Module, error)
	UpdatePositions(ctx context.Context, positions map[int64]int) error
}

// PermissionLookup is the slice of the permission store the module service
// needs. It is satisfied by the permission repository.
type PermissionLookup interface {
	CountByModule(ctx context.Context, moduleID int64) (int64, error)
	CountBySubModule(ctx context.Context, moduleID, subModuleID int64) (int64, error)
	ModuleIDsForRole(ctx context.Context, roleID int64) ([]int64, error)
}

type Service struct {
	repo      RepositoryAPI
	perms     PermissionLookup
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, perms PermissionLookup, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		perms:     perms,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create inserts every module of the batch or none of them.
func (s *Service) Create(ctx context.Context, req BulkCreateModulesRequest) ([]*Module, error) {
	names := make([]string, 0, len(req.Modules))
	routes := make([]string, 0, len(req.Modules))
	seen := make(map[string]bool, len(req.Modules)*2)
	modules := make([]*Module, 0, len(req.Modules))

	for _, in := range req.Modules {
		m := NewModule(in.Name, in.Route)
		m.Description = in.Description
		m.Position = in.Position
		m.DashboardView = in.DashboardView
		if in.Icon != "" {
			m.Icon = in.Icon
		}
		if in.IsActive != nil {
			m.IsActive = *in.IsActive
		}
		for _, sub := range in.SubModules {
			if _, err := m.AddSubModule(subModuleFromInput(sub)); err != nil {
				return nil, err
			}
		}

		nameKey, routeKey := "n:"+m.Name, "r:"+m.Route
		if seen[nameKey] || seen[routeKey] {
			return nil, ErrModuleExists
		}
		seen[nameKey], seen[routeKey] = true, true

		names = append(names, m.Name)
		routes = append(routes, m.Route)
		modules = append(modules, m)
	}

	conflicts, err := s.repo.FindLiveByNamesOrRoutes(ctx, names, routes)
	if err != nil {
		return nil, internal.NewInternalError("failed to check module conflicts", err)
	}
	if len(conflicts) > 0 {
		return nil, ErrModuleExists.WithDetails(conflictDetails(conflicts))
	}

	rows := make([]*moduleDatamodel.Module, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, ToDataModel(m))
	}
	if err := s.repo.CreateMany(ctx, rows); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrModuleExists
		}
		return nil, internal.NewInternalError("failed to create modules", err)
	}

	out := make([]*Module, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
		s.publish(ctx, row.ID, row.Name)
	}
	s.logger.Info("modules created", "count", len(out))
	return out, nil
}

// Update relies on the live-row unique indexes for name and route clashes.
func (s *Service) Update(ctx context.Context, id int64, req UpdateModuleRequest) (*Module, error) {
	return s.mutate(ctx, id, false, func(m *Module) error {
		if req.Name != nil {
			m.Rename(*req.Name)
		}
		if req.Route != nil {
			m.Route = strings.TrimSpace(*req.Route)
		}
		if req.Description != nil {
			m.Description = *req.Description
		}
		if req.Icon != nil {
			m.Icon = *req.Icon
		}
		if req.Position != nil {
			m.Position = *req.Position
		}
		if req.IsActive != nil {
			m.IsActive = *req.IsActive
		}
		if req.DashboardView != nil {
			m.DashboardView = *req.DashboardView
		}
		return nil
	})
}

func (s *Service) Reorder(ctx context.Context, req ReorderRequest) error {
	positions := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		positions[item.ID] = item.Position
	}
	if err := s.repo.UpdatePositions(ctx, positions); err != nil {
		return internal.NewInternalError("failed to reorder modules", err)
	}
	for id := range positions {
		s.publish(ctx, id)
	}
	return nil
}

// SoftDelete is refused while live permission rows reference the module.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	n, err := s.perms.CountByModule(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to check module usage", err)
	}
	if n > 0 {
		return ErrModuleInUse
	}

	_, err = s.mutate(ctx, id, false, func(m *Module) error {
		at := s.now()
		m.IsDeleted = true
		m.DeletedAt = &at
		return nil
	})
	return err
}

func (s *Service) Restore(ctx context.Context, id int64) (*Module, error) {
	return s.mutate(ctx, id, true, func(m *Module) error {
		if !m.IsDeleted {
			return ErrNotDeleted
		}
		m.IsDeleted = false
		m.DeletedAt = nil
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Module, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page := q.Page.Normalize()
	rows, total, err := s.repo.List(ctx, ListFilter{Page: page, IsActive: q.IsActive, IncludeDeleted: q.IncludeDeleted})
	if err != nil {
		return nil, internal.NewInternalError("failed to list modules", err)
	}

	modules := make([]*Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, FromDataModel(row))
	}
	return &ListResult{Modules: modules, Meta: internal.NewPageMeta(page, total)}, nil
}

// Menu lists the navigation visible to a role: every active module for a
// super-admin, otherwise the active modules the role holds a live grant on.
func (s *Service) Menu(ctx context.Context, r *role.Role) ([]MenuItem, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load menu", err)
	}

	var allowed map[int64]bool
	if !r.IsSuperAdmin {
		ids, err := s.perms.ModuleIDsForRole(ctx, r.ID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load menu permissions", err)
		}
		allowed = make(map[int64]bool, len(ids))
		for _, id := range ids {
			allowed[id] = true
		}
	}

	items := make([]MenuItem, 0, len(rows))
	for _, row := range rows {
		if allowed != nil && !allowed[row.ID] {
			continue
		}
		items = append(items, toMenuItem(FromDataModel(row)))
	}
	return items, nil
}

func (s *Service) AddSubModule(ctx context.Context, moduleID int64, in SubModuleInput) (*SubModule, error) {
	var created SubModule
	_, err := s.mutate(ctx, moduleID, false, func(m *Module) error {
		sub, err := m.AddSubModule(subModuleFromInput(in))
		if err != nil {
			return err
		}
		created = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Service) UpdateSubModule(ctx context.Context, moduleID, subID int64, req UpdateSubModuleRequest) (*SubModule, error) {
	var updated SubModule
	_, err := s.mutate(ctx, moduleID, false, func(m *Module) error {
		sub := m.SubModule(subID)
		if sub == nil || sub.IsDeleted {
			return ErrSubModuleNotFound
		}
		if req.Name != nil {
			if err := m.RenameSubModule(subID, *req.Name); err != nil {
				return err
			}
		}
		if req.Route != nil {
			sub.Route = *req.Route
		}
		if req.Icon != nil {
			sub.Icon = *req.Icon
		}
		if req.Position != nil {
			sub.Position = *req.Position
		}
		if req.IsActive != nil {
			sub.IsActive = *req.IsActive
		}
		if req.DashboardView != nil {
			sub.DashboardView = *req.DashboardView
		}
		updated = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSubModule checks usage before taking the module lock; the count reads
// committed permission rows and does not need to share the transaction.
func (s *Service) DeleteSubModule(ctx context.Context, moduleID, subID int64) error {
	n, err := s.perms.CountBySubModule(ctx, moduleID, subID)
	if err != nil {
		return internal.NewInternalError("failed to check submodule usage", err)
	}

	_, err = s.mutate(ctx, moduleID, false, func(m *Module) error {
		sub := m.SubModule(subID)
		if sub == nil || sub.IsDeleted {
			return ErrSubModuleNotFound
		}
		if n > 0 {
			return ErrSubModuleInUse
		}
		at := s.now()
		sub.IsDeleted = true
		sub.DeletedAt = &at
		return nil
	})
	return err
}

func (s *Service) RestoreSubModule(ctx context.Context, moduleID, subID int64) (*SubModule, error) {
	var restored SubModule
	_, err := s.mutate(ctx, moduleID, false, func(m *Module) error {
		sub := m.SubModule(subID)
		if sub == nil {
			return ErrSubModuleNotFound
		}
		if !sub.IsDeleted {
			return ErrNotDeleted
		}
		if m.liveSubModuleNamed(sub.Name, sub.ID) != nil {
			return ErrSubModuleExists
		}
		sub.IsDeleted = false
		sub.DeletedAt = nil
		restored = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &restored, nil
}

func (s *Service) ReorderSubModules(ctx context.Context, moduleID int64, req ReorderRequest) (*Module, error) {
	return s.mutate(ctx, moduleID, false, func(m *Module) error {
		for _, item := range req.Items {
			sub := m.SubModule(item.ID)
			if sub == nil || sub.IsDeleted {
				return ErrSubModuleNotFound
			}
			sub.Position = item.Position
		}
		return nil
	})
}

// mutate runs change against module id while the repository holds its row
// lock, then announces the names the module had before and after.
func (s *Service) mutate(ctx context.Context, id int64, allowDeleted bool, change func(m *Module) error) (*Module, error) {
	var previousName string
	row, err := s.repo.Mutate(ctx, id, func(row *moduleDatamodel.Module) error {
		m := FromDataModel(row)
		if m.IsDeleted && !allowDeleted {
			return ErrModuleNotFound
		}
		previousName = m.Name
		if err := change(m); err != nil {
			return err
		}
		*row = *ToDataModel(m)
		return nil
	})
	if err != nil {
		if appErr, ok := internal.AsAppError(err); ok {
			return nil, appErr
		}
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrModuleExists
		}
		return nil, internal.NewInternalError("failed to save module", err)
	}
	if row == nil {
		return nil, ErrModuleNotFound
	}

	m := FromDataModel(row)
	names := []string{m.Name}
	if previousName != m.Name {
		names = append(names, previousName)
	}
	s.publish(ctx, m.ID, names...)
	return m, nil
}

// publish notifies subscribers synchronously so a cache eviction has happened
// before the write is acknowledged.
func (s *Service) publish(ctx context.Context, moduleID int64, names ...string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, events.NewModuleChangedEvent(moduleID, names...)); err != nil {
		s.logger.Warn("module change notification failed", "module_id", moduleID, "error", err)
	}
}

func (s *Service) load(ctx context.Context, id int64) (*Module, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get module", err)
	}
	if row == nil {
		return nil, ErrModuleNotFound
	}
	return FromDataModel(row), nil
}

func subModuleFromInput(in SubModuleInput) SubModule {
	sub := SubModule{
		Name:          in.Name,
		Route:         in.Route,
		Icon:          in.Icon,
		Position:      in.Position,
		IsActive:      true,
		DashboardView: in.DashboardView,
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}
	return sub
}

func conflictDetails(rows []*moduleDatamodel.Module) map[string][]string {
	names := make([]string, 0, len(rows))
	routes := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
		routes = append(routes, r.Route)
	}
	return map[string][]string{"names": names, "routes": routes}
}
