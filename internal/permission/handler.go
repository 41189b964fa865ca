package permission

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
	"github.com/frahmantamala/marketplace/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, req BulkCreatePermissionsRequest, by Grantor) ([]*Permission, error)
	Update(ctx context.Context, id int64, req UpdatePermissionRequest) (*Permission, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*Permission, error)
	HardDelete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Permission, error)
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Capabilities(ctx context.Context, r *role.Role) (*CapabilitySet, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// Create accepts a single permission object or {"permissions": [...]}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrNotAuthenticated)
		return
	}

	req, err := h.decodeCreate(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), req, Grantor{ID: p.ID, Type: p.Type.String()})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"permissions": created})
}

func (h *Handler) decodeCreate(r *http.Request) (BulkCreatePermissionsRequest, error) {
	var req BulkCreatePermissionsRequest
	var single CreatePermissionRequest
	isBulk, err := h.DecodeOneOrMany(r, "permissions", &req, &single)
	if err != nil {
		return req, err
	}
	if !isBulk {
		req.Permissions = []CreatePermissionRequest{single}
	}
	return req, nil
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var req UpdatePermissionRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), id, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.SoftDelete(r.Context(), id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	restored, err := h.Service.Restore(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, restored)
}

func (h *Handler) HardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.HardDelete(r.Context(), id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	found, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, found)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{
		Page:     h.ParsePage(r),
		RoleCode: r.URL.Query().Get("role_code"),
		IsActive: h.ParseBoolQuery(r, "is_active"),
	}
	if raw := r.URL.Query().Get("module_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("module_id", "must be a positive integer", internal.ErrCodeInvalidID))
			return
		}
		q.ModuleID = &id
	}
	if v := h.ParseBoolQuery(r, "include_deleted"); v != nil {
		q.IncludeDeleted = *v
	}

	result, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// Mine returns the caller's capability map.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrNotAuthenticated)
		return
	}

	set, err := h.Service.Capabilities(r.Context(), p.Role)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, set)
}
