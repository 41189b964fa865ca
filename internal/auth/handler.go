package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/transport"
)

type ServiceAPI interface {
	Login(ctx context.Context, t principal.Type, req LoginRequest) (*Session, error)
	Register(ctx context.Context, t principal.Type, req RegisterRequest) (*Session, error)
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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	t, err := principal.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		h.HandleServiceError(w, r, ErrUnknownType)
		return
	}

	var req LoginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Login(r.Context(), t, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	t, err := principal.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		h.HandleServiceError(w, r, ErrUnknownType)
		return
	}

	var req RegisterRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Register(r.Context(), t, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, session)
}
