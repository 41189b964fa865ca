package permission

import "strings"

// Action is one of the five capabilities a permission row can grant.
type Action int

const (
	ActionView Action = iota + 1
	ActionAdd
	ActionEdit
	ActionDelete
	ActionViewAll
)

var actionSynonyms = map[string]Action{
	"view":    ActionView,
	"add":     ActionAdd,
	"create":  ActionAdd,
	"edit":    ActionEdit,
	"update":  ActionEdit,
	"delete":  ActionDelete,
	"remove":  ActionDelete,
	"viewall": ActionViewAll,
}

// ParseAction maps a request action name to its capability, ignoring case.
func ParseAction(name string) (Action, bool) {
	a, ok := actionSynonyms[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionAdd:
		return "add"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	case ActionViewAll:
		return "viewall"
	}
	return "unknown"
}

type Flags struct {
	CanView    bool `json:"can_view"`
	CanAdd     bool `json:"can_add"`
	CanEdit    bool `json:"can_edit"`
	CanDelete  bool `json:"can_delete"`
	CanViewAll bool `json:"can_view_all"`
}

func AllFlags() Flags {
	return Flags{CanView: true, CanAdd: true, CanEdit: true, CanDelete: true, CanViewAll: true}
}

func (f Flags) Allows(a Action) bool {
	switch a {
	case ActionView:
		return f.CanView
	case ActionAdd:
		return f.CanAdd
	case ActionEdit:
		return f.CanEdit
	case ActionDelete:
		return f.CanDelete
	case ActionViewAll:
		return f.CanViewAll
	}
	return false
}
