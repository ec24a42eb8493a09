package httputil

import (
	"net/http"
	"strconv"
)

// Default and maximum page sizes for list endpoints.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Page is a limit/offset window parsed from query parameters.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads ?limit= and ?offset=. Invalid values fall back to defaults,
// limit is clamped to MaxPageLimit.
func ParsePage(r *http.Request) Page {
	p := Page{Limit: DefaultPageLimit}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.Limit = min(v, MaxPageLimit)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}
