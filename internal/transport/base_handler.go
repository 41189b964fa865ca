package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/common/validation"
	"github.com/frahmantamala/marketplace/pkg/logger"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, h.Logger)
}

// HandleServiceError renders any error returned by a service.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	RenderError(w, r, err)
}

// DecodeJSON reads the request body into dst and validates it.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return internal.NewValidationError("invalid request body", internal.ErrCodeInvalidBody).WithCause(err)
	}
	return validation.Struct(dst)
}

// DecodeOneOrMany decodes a body that is either an envelope {"<key>": [...]}
// into bulk, or a single object into single. It reports which form was sent.
func (h *BaseHandler) DecodeOneOrMany(r *http.Request, key string, bulk, single interface{}) (bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return false, internal.NewValidationError("invalid request body", internal.ErrCodeInvalidBody).WithCause(err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return false, internal.NewValidationError("invalid request body", internal.ErrCodeInvalidBody).WithCause(err)
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	if _, ok := probe[key]; ok {
		return true, h.DecodeJSON(r, bulk)
	}
	return false, h.DecodeJSON(r, single)
}

// ParseIDParam reads a positive integer chi URL parameter.
func (h *BaseHandler) ParseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(name, "must be a positive integer", internal.ErrCodeInvalidID)
	}
	return id, nil
}

// ParsePage reads page/limit query parameters.
func (h *BaseHandler) ParsePage(r *http.Request) internal.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return internal.Page{Page: page, Limit: limit}.Normalize()
}

// ParseBoolQuery returns nil when the parameter is absent or unparsable.
func (h *BaseHandler) ParseBoolQuery(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// RenderError is the single place errors become HTTP responses. Anything that
// is not an *internal.AppError is reported as a 500 without leaking its text.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	lg := logger.From(r.Context())

	appErr, ok := internal.AsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("Internal server error", err)
	}

	switch {
	case appErr.StatusCode >= http.StatusInternalServerError:
		lg.Error("request failed",
			"path", r.URL.Path,
			"code", appErr.Code,
			"error", errors.Unwrap(appErr))
	default:
		lg.Warn("request rejected",
			"path", r.URL.Path,
			"status", appErr.StatusCode,
			"code", appErr.Code,
			"message", appErr.Message)
	}

	status, body := appErr.ToHTTPResponse()
	writeJSON(w, status, body, lg)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, lg *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		lg.Error("failed to encode JSON response", "error", err)
	}
}
