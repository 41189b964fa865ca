package module

import "github.com/frahmantamala/marketplace/internal"

type SubModuleInput struct {
	Name          string `json:"name" validate:"required,max=50"`
	Route         string `json:"route" validate:"max=200"`
	Icon          string `json:"icon" validate:"max=100"`
	Position      int    `json:"position" validate:"gte=0"`
	IsActive      *bool  `json:"is_active"`
	DashboardView bool   `json:"dashboard_view"`
}

type CreateModuleRequest struct {
	Name          string           `json:"name" validate:"required,max=50"`
	Description   string           `json:"description" validate:"max=300"`
	Icon          string           `json:"icon" validate:"max=100"`
	Route         string           `json:"route" validate:"required,max=200"`
	Position      int              `json:"position" validate:"gte=0"`
	IsActive      *bool            `json:"is_active"`
	DashboardView bool             `json:"dashboard_view"`
	SubModules    []SubModuleInput `json:"sub_modules" validate:"dive"`
}

// BulkCreateModulesRequest accepts one or many modules in a single call.
type BulkCreateModulesRequest struct {
	Modules []CreateModuleRequest `json:"modules" validate:"required,min=1,max=100,dive"`
}

type UpdateModuleRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=50"`
	Description   *string `json:"description" validate:"omitempty,max=300"`
	Icon          *string `json:"icon" validate:"omitempty,max=100"`
	Route         *string `json:"route" validate:"omitempty,max=200"`
	Position      *int    `json:"position" validate:"omitempty,gte=0"`
	IsActive      *bool   `json:"is_active"`
	DashboardView *bool   `json:"dashboard_view"`
}

type UpdateSubModuleRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=50"`
	Route         *string `json:"route" validate:"omitempty,max=200"`
	Icon          *string `json:"icon" validate:"omitempty,max=100"`
	Position      *int    `json:"position" validate:"omitempty,gte=0"`
	IsActive      *bool   `json:"is_active"`
	DashboardView *bool   `json:"dashboard_view"`
}

type PositionInput struct {
	ID       int64 `json:"id" validate:"required,gt=0"`
	Position int   `json:"position" validate:"gte=0"`
}

type ReorderRequest struct {
	Items []PositionInput `json:"items" validate:"required,min=1,dive"`
}

type ListQuery struct {
	Page           internal.Page
	IsActive       *bool
	IncludeDeleted bool
}

type ListResult struct {
	Modules []*Module        `json:"modules"`
	Meta    internal.PageMeta `json:"meta"`
}

type MenuSubItem struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Route         string `json:"route,omitempty"`
	Icon          string `json:"icon"`
	Position      int    `json:"position"`
	DashboardView bool   `json:"dashboard_view"`
}

type MenuItem struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Icon          string        `json:"icon"`
	Route         string        `json:"route"`
	Position      int           `json:"position"`
	DashboardView bool          `json:"dashboard_view"`
	SubModules    []MenuSubItem `json:"sub_modules"`
}

func toMenuItem(m *Module) MenuItem {
	active := m.ActiveSubModules()
	subs := make([]MenuSubItem, 0, len(active))
	for _, s := range active {
		subs = append(subs, MenuSubItem{
			ID:            s.ID,
			Name:          s.Name,
			Route:         s.Route,
			Icon:          s.Icon,
			Position:      s.Position,
			DashboardView: s.DashboardView,
		})
	}
	return MenuItem{
		ID:            m.ID,
		Name:          m.Name,
		Slug:          m.Slug,
		Icon:          m.Icon,
		Route:         m.Route,
		Position:      m.Position,
		DashboardView: m.DashboardView,
		SubModules:    subs,
	}
}
