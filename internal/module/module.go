package module

import (
	"regexp"
	"sort"
	"strings"
	"time"

	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
)

const (
	DefaultModuleIcon    = "fas fa-folder"
	DefaultSubModuleIcon = "fas fa-circle"
)

type SubModule struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Route         string     `json:"route,omitempty"`
	Icon          string     `json:"icon"`
	Position      int        `json:"position"`
	IsActive      bool       `json:"is_active"`
	DashboardView bool       `json:"dashboard_view"`
	IsDeleted     bool       `json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *SubModule) Usable() bool {
	return s.IsActive && !s.IsDeleted
}

// Module is an access-controlled functional area. It owns its submodules and
// hands out their ids from NextSubModuleID so an id is never reused.
type Module struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Description     string      `json:"description,omitempty"`
	Icon            string      `json:"icon"`
	Route           string      `json:"route"`
	Position        int         `json:"position"`
	IsActive        bool        `json:"is_active"`
	DashboardView   bool        `json:"dashboard_view"`
	IsDeleted       bool        `json:"is_deleted"`
	DeletedAt       *time.Time  `json:"deleted_at,omitempty"`
	NextSubModuleID int64       `json:"-"`
	SubModules      []SubModule `json:"sub_modules"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func NewModule(name, route string) *Module {
	name = strings.TrimSpace(name)
	return &Module{
		Name:     name,
		Slug:     Slugify(name),
		Route:    strings.TrimSpace(route),
		Icon:     DefaultModuleIcon,
		IsActive: true,
	}
}

func (m *Module) Usable() bool {
	return m != nil && m.IsActive && !m.IsDeleted
}

func (m *Module) Rename(name string) {
	m.Name = strings.TrimSpace(name)
	m.Slug = Slugify(m.Name)
}

// AddSubModule appends a live submodule. Names are unique among live entries.
func (m *Module) AddSubModule(sub SubModule) (*SubModule, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	if m.liveSubModuleNamed(sub.Name, 0) != nil {
		return nil, ErrSubModuleExists
	}
	if sub.Icon == "" {
		sub.Icon = DefaultSubModuleIcon
	}
	m.NextSubModuleID++
	sub.ID = m.NextSubModuleID
	sub.IsDeleted = false
	sub.DeletedAt = nil
	m.SubModules = append(m.SubModules, sub)
	return &m.SubModules[len(m.SubModules)-1], nil
}

func (m *Module) SubModule(id int64) *SubModule {
	for i := range m.SubModules {
		if m.SubModules[i].ID == id {
			return &m.SubModules[i]
		}
	}
	return nil
}

// ActiveSubModule finds a submodule by name among active, non-deleted entries.
// Names compare without case, the same rule that keeps them unique.
func (m *Module) ActiveSubModule(name string) *SubModule {
	for i := range m.SubModules {
		if strings.EqualFold(m.SubModules[i].Name, name) && m.SubModules[i].Usable() {
			return &m.SubModules[i]
		}
	}
	return nil
}

// RenameSubModule fails when another live submodule already uses name.
func (m *Module) RenameSubModule(id int64, name string) error {
	sub := m.SubModule(id)
	if sub == nil {
		return ErrSubModuleNotFound
	}
	name = strings.TrimSpace(name)
	if m.liveSubModuleNamed(name, id) != nil {
		return ErrSubModuleExists
	}
	sub.Name = name
	return nil
}

// ActiveSubModules returns usable submodules ordered by position.
func (m *Module) ActiveSubModules() []SubModule {
	out := make([]SubModule, 0, len(m.SubModules))
	for _, s := range m.SubModules {
		if s.Usable() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func (m *Module) liveSubModuleNamed(name string, exceptID int64) *SubModule {
	for i := range m.SubModules {
		s := &m.SubModules[i]
		if s.ID != exceptID && !s.IsDeleted && strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func ToDataModel(m *Module) *moduleDatamodel.Module {
	subs := make([]moduleDatamodel.SubModule, 0, len(m.SubModules))
	for _, s := range m.SubModules {
		subs = append(subs, moduleDatamodel.SubModule{
			ModuleID:      m.ID,
			ID:            s.ID,
			Name:          s.Name,
			Route:         s.Route,
			Icon:          s.Icon,
			Position:      s.Position,
			IsActive:      s.IsActive,
			DashboardView: s.DashboardView,
			IsDeleted:     s.IsDeleted,
			DeletedAt:     s.DeletedAt,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		})
	}
	return &moduleDatamodel.Module{
		ID:              m.ID,
		Name:            m.Name,
		Slug:            m.Slug,
		Description:     m.Description,
		Icon:            m.Icon,
		Route:           m.Route,
		Position:        m.Position,
		IsActive:        m.IsActive,
		DashboardView:   m.DashboardView,
		IsDeleted:       m.IsDeleted,
		DeletedAt:       m.DeletedAt,
		NextSubModuleID: m.NextSubModuleID,
		SubModules:      subs,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func FromDataModel(m *moduleDatamodel.Module) *Module {
	subs := make([]SubModule, 0, len(m.SubModules))
	for _, s := range m.SubModules {
		subs = append(subs, SubModule{
			ID:            s.ID,
			Name:          s.Name,
			Route:         s.Route,
			Icon:          s.Icon,
			Position:      s.Position,
			IsActive:      s.IsActive,
			DashboardView: s.DashboardView,
			IsDeleted:     s.IsDeleted,
			DeletedAt:     s.DeletedAt,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		})
	}
	return &Module{
		ID:              m.ID,
		Name:            m.Name,
		Slug:            m.Slug,
		Description:     m.Description,
		Icon:            m.Icon,
		Route:           m.Route,
		Position:        m.Position,
		IsActive:        m.IsActive,
		DashboardView:   m.DashboardView,
		IsDeleted:       m.IsDeleted,
		DeletedAt:       m.DeletedAt,
		NextSubModuleID: m.NextSubModuleID,
		SubModules:      subs,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
