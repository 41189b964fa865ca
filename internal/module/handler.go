package module

import (
	"context"
	"net/http"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
	"github.com/frahmantamala/marketplace/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, req BulkCreateModulesRequest) ([]*Module, error)
	Update(ctx context.Context, id int64, req UpdateModuleRequest) (*Module, error)
	Reorder(ctx context.Context, req ReorderRequest) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*Module, error)
	Get(ctx context.Context, id int64) (*Module, error)
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Menu(ctx context.Context, r *role.Role) ([]MenuItem, error)
	AddSubModule(ctx context.Context, moduleID int64, in SubModuleInput) (*SubModule, error)
	UpdateSubModule(ctx context.Context, moduleID, subID int64, req UpdateSubModuleRequest) (*SubModule, error)
	DeleteSubModule(ctx context.Context, moduleID, subID int64) error
	RestoreSubModule(ctx context.Context, moduleID, subID int64) (*SubModule, error)
	ReorderSubModules(ctx context.Context, moduleID int64, req ReorderRequest) (*Module, error)
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

// Create accepts either a single module object or {"modules": [...]}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeCreate(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"modules": created})
}

func (h *Handler) decodeCreate(r *http.Request) (BulkCreateModulesRequest, error) {
	var req BulkCreateModulesRequest
	var single CreateModuleRequest
	isBulk, err := h.DecodeOneOrMany(r, "modules", &req, &single)
	if err != nil {
		return req, err
	}
	if !isBulk {
		req.Modules = []CreateModuleRequest{single}
	}
	return req, nil
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var req UpdateModuleRequest
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

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Reorder(r.Context(), req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
		IsActive: h.ParseBoolQuery(r, "is_active"),
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

func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrNotAuthenticated)
		return
	}

	items, err := h.Service.Menu(r.Context(), p.Role)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"menu": items})
}

func (h *Handler) AddSubModule(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var in SubModuleInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	sub, err := h.Service.AddSubModule(r.Context(), id, in)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) UpdateSubModule(w http.ResponseWriter, r *http.Request) {
	id, subID, err := h.subModuleParams(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var req UpdateSubModuleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	sub, err := h.Service.UpdateSubModule(r.Context(), id, subID, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) DeleteSubModule(w http.ResponseWriter, r *http.Request) {
	id, subID, err := h.subModuleParams(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.DeleteSubModule(r.Context(), id, subID); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestoreSubModule(w http.ResponseWriter, r *http.Request) {
	id, subID, err := h.subModuleParams(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	sub, err := h.Service.RestoreSubModule(r.Context(), id, subID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) ReorderSubModules(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var req ReorderRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	m, err := h.Service.ReorderSubModules(r.Context(), id, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) subModuleParams(r *http.Request) (int64, int64, error) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		return 0, 0, err
	}
	subID, err := h.ParseIDParam(r, "subID")
	if err != nil {
		return 0, 0, err
	}
	return id, subID, nil
}
