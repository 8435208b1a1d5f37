package httpapi

import (
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plazapos/contable/internal/errs"
)

var zeroTime time.Time

// pathID parses the {id} path parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id", errs.ErrInvalid)
	}
	return id, nil
}

// queryBusinessID parses the required business_id query parameter.
func queryBusinessID(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("business_id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: business_id is required", errs.ErrInvalid)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid business_id", errs.ErrInvalid)
	}
	return id, nil
}

// queryDate parses a YYYY-MM-DD query parameter, returning def when absent.
func queryDate(r *http.Request, key string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return parseDate(key, raw)
}
