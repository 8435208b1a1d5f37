package httpapi

import (
	"encoding/json"
	"net/http"
)

// toJSON writes v as a JSON response with the given status. A nil v writes
// the status line only.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
