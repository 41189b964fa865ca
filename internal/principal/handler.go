package principal

import (
	"context"
	"net/http"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, t Type, in NewAccount) (*Principal, error)
	Get(ctx context.Context, t Type, id int64) (*Principal, error)
	List(ctx context.Context, t Type, q ListQuery) (*ListResult, error)
	UpdateProfile(ctx context.Context, t Type, id int64, req UpdateProfileRequest) (*Principal, error)
	ChangePassword(ctx context.Context, t Type, id int64, current, next string) error
	SetActive(ctx context.Context, t Type, id int64, active bool) (*Principal, error)
	SoftDelete(ctx context.Context, t Type, id int64) error
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

// Me returns the authenticated principal with its live role.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := FromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrNotAuthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CreatePlatformUser(w http.ResponseWriter, r *http.Request) {
	var req CreatePlatformUserRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), TypeUser, NewAccount{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		RoleID:   req.RoleID,
	})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

// UpdateProfile edits the caller's own account.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := FromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrNotAuthenticated)
		return
	}

	var req UpdateProfileRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.UpdateProfile(r.Context(), p.Type, p.ID, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	updated.Role = p.Role
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := FromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrNotAuthenticated)
		return
	}

	var req ChangePasswordRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), p.Type, p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// The account handlers below serve the administration of one account type;
// the router mounts one set per type.

func (h *Handler) ListAccounts(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := ListQuery{
			Page:     h.ParsePage(r),
			IsActive: h.ParseBoolQuery(r, "is_active"),
			Search:   r.URL.Query().Get("search"),
		}

		result, err := h.Service.List(r.Context(), t, q)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) GetAccount(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.ParseIDParam(r, "id")
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		account, err := h.Service.Get(r.Context(), t, id)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, account)
	}
}

func (h *Handler) UpdateAccount(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.ParseIDParam(r, "id")
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		var req UpdateProfileRequest
		if err := h.DecodeJSON(r, &req); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		updated, err := h.Service.UpdateProfile(r.Context(), t, id, req)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, updated)
	}
}

func (h *Handler) UpdateAccountStatus(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.ParseIDParam(r, "id")
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		var req UpdateStatusRequest
		if err := h.DecodeJSON(r, &req); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		updated, err := h.Service.SetActive(r.Context(), t, id, *req.IsActive)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, updated)
	}
}

func (h *Handler) DeleteAccount(t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.ParseIDParam(r, "id")
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		if err := h.Service.SoftDelete(r.Context(), t, id); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
