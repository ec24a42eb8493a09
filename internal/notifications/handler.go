package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	service *Service
}

// NewHandler creates a new notifications handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers notification routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me/notifications", h.ListMine)
}

// ListMine handles GET /me/notifications.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())
	page := httputil.ParsePage(r)

	result, err := h.service.ListForUser(r.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}
