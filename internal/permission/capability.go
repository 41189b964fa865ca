package permission

import "context"

// Capability is one row of a role's read model, already joined with the
// module and submodule names.
type Capability struct {
	ModuleID      int64
	ModuleName    string
	SubModuleID   *int64
	SubModuleName string
	Flags
}

// CapabilityMap is keyed "Module" for module-level grants and
// "Module/SubModule" for submodule grants.
type CapabilityMap map[string]Flags

func CapabilityKey(moduleName, subModuleName string) string {
	if subModuleName == "" {
		return moduleName
	}
	return moduleName + "/" + subModuleName
}

type CapabilitySet struct {
	RoleCode     string        `json:"role_code"`
	IsSuperAdmin bool          `json:"is_super_admin"`
	Permissions  CapabilityMap `json:"permissions"`
}

// CapabilityReader lists the live grants of a role on live modules and
// submodules.
type CapabilityReader interface {
	ListCapabilities(ctx context.Context, roleID int64) ([]Capability, error)
}

func BuildCapabilityMap(rows []Capability) CapabilityMap {
	out := make(CapabilityMap, len(rows))
	for _, c := range rows {
		out[CapabilityKey(c.ModuleName, c.SubModuleName)] = c.Flags
	}
	return out
}
