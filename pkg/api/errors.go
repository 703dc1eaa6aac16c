package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// writeEngineError translates the engine's sentinel errors into JSON
// responses. Not-found responses carry a fixed message so that the
// response body never distinguishes a missing object from a forbidden
// one.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, model.ErrPermissionDenied):
		httputil.WriteForbidden(w, "permission denied")
	case errors.Is(err, model.ErrValidation):
		httputil.WriteValidationError(w, errorDetail(err, "validation failed"))
	case errors.Is(err, model.ErrConflict):
		httputil.WriteConflict(w, errorDetail(err, "conflict"))
	default:
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}

// errorDetail returns the full error text for error classes that are
// safe to echo back to the caller.
func errorDetail(err error, fallback string) string {
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
