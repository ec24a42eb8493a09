package activity

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

// Handler serves the activity log.
type Handler struct {
	service *Service
}

// NewHandler creates a new activity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers activity routes. The caller is expected to guard
// them with ACTIVITY_LOG_VIEW.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/activity", h.List)
}

// List handles GET /activity.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePage(r)
	q := r.URL.Query()

	entries, err := h.service.List(r.Context(), Filter{
		ResourceKind: q.Get("resource_kind"),
		ResourceID:   q.Get("resource_id"),
		ActorID:      q.Get("actor_id"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}
