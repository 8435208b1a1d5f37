package httpapi

import (
	"errors"
	"net/http"

	"github.com/plazapos/contable/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "bad_request")
}

// writeDomainErr maps sentinel errors to HTTP statuses: 404 for missing
// references, 409 for state conflicts, 422 for validation and range
// failures, 500 otherwise.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "not_found")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, errs.ErrInvalidRange):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "invalid_range")
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
