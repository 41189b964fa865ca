package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/marketplace/internal/permission"
)

// CapabilityReader serves the read model with a single join through sqlx.
type CapabilityReader struct {
	db *sqlx.DB
}

func NewCapabilityReader(db *sqlx.DB) *CapabilityReader {
	return &CapabilityReader{db: db}
}

var _ permission.CapabilityReader = (*CapabilityReader)(nil)

const capabilitiesQuery = `
SELECT
	p.module_id,
	m.name AS module_name,
	p.sub_module_id,
	s.name AS sub_module_name,
	p.can_view,
	p.can_add,
	p.can_edit,
	p.can_delete,
	p.can_view_all
FROM permissions p
JOIN modules m ON m.id = p.module_id AND m.is_active = ? AND m.is_deleted = ?
LEFT JOIN sub_modules s ON s.module_id = p.module_id AND s.id = p.sub_module_id
WHERE p.role_id = ?
	AND p.is_active = ?
	AND p.is_deleted = ?
	AND (p.sub_module_id IS NULL OR (s.is_active = ? AND s.is_deleted = ?))
ORDER BY m.position, m.id, s.position, s.id`

type capabilityRow struct {
	ModuleID      int64          `db:"module_id"`
	ModuleName    string         `db:"module_name"`
	SubModuleID   sql.NullInt64  `db:"sub_module_id"`
	SubModuleName sql.NullString `db:"sub_module_name"`
	CanView       bool           `db:"can_view"`
	CanAdd        bool           `db:"can_add"`
	CanEdit       bool           `db:"can_edit"`
	CanDelete     bool           `db:"can_delete"`
	CanViewAll    bool           `db:"can_view_all"`
}

func (r *CapabilityReader) ListCapabilities(ctx context.Context, roleID int64) ([]permission.Capability, error) {
	var rows []capabilityRow
	query := r.db.Rebind(capabilitiesQuery)
	if err := r.db.SelectContext(ctx, &rows, query, true, false, roleID, true, false, true, false); err != nil {
		return nil, err
	}

	out := make([]permission.Capability, 0, len(rows))
	for _, row := range rows {
		c := permission.Capability{
			ModuleID:   row.ModuleID,
			ModuleName: row.ModuleName,
			Flags: permission.Flags{
				CanView:    row.CanView,
				CanAdd:     row.CanAdd,
				CanEdit:    row.CanEdit,
				CanDelete:  row.CanDelete,
				CanViewAll: row.CanViewAll,
			},
		}
		if row.SubModuleID.Valid {
			id := row.SubModuleID.Int64
			c.SubModuleID = &id
			c.SubModuleName = row.SubModuleName.String
		}
		out = append(out, c)
	}
	return out, nil
}
