package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"gatewayd/internal/gwconfig"
	"gatewayd/internal/manager"
	"gatewayd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, category, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status, Category: category})
}

func writeValidationError(w http.ResponseWriter, ve gwconfig.ValidationErrors) {
	fields := make([]types.FieldError, len(ve))
	for i, fe := range ve {
		fields[i] = types.FieldError{Path: fe.Path, Reason: fe.Reason}
	}
	writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
		Error:    ve.Error(),
		Code:     http.StatusBadRequest,
		Category: types.CategoryValidation,
		Fields:   fields,
	})
}

// writeServiceError maps a service error to a response. Internal failures are
// logged with detail and reported without it.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := gwconfig.AsValidation(err); ok {
		writeValidationError(w, ve)
		return
	}
	if gwconfig.IsSyntax(err) {
		writeJSONError(w, http.StatusBadRequest, types.CategoryRequest, err.Error())
		return
	}
	if manager.IsInvariant(err) {
		logError(r, err, "supervisor invariant violated")
		writeJSONError(w, http.StatusInternalServerError, types.CategoryInternal, "internal supervisor error")
		return
	}
	var he HTTPError
	if errors.As(err, &he) && he.StatusCode() < 500 {
		writeJSONError(w, he.StatusCode(), types.CategoryRequest, he.Error())
		return
	}
	logError(r, err, "request failed")
	writeJSONError(w, http.StatusInternalServerError, types.CategoryInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func logError(r *http.Request, err error, msg string) {
	if zlog == nil {
		return
	}
	ev := zlog.Error().Err(err).Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg(msg)
}
