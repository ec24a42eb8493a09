package httputil

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// IDParam reads a UUID URL parameter. A malformed id cannot name an existing
// row, so it is answered with 404 and ok is false.
func IDParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		Error(w, http.StatusNotFound, "resource not found")
		return "", false
	}
	return id, true
}

// ListResult is a page of items with the total count of matching rows.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
