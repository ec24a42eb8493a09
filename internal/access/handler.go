package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

// Handler exposes the caller's effective capabilities.
type Handler struct {
	evaluator *Evaluator
}

// NewHandler creates a new access handler.
func NewHandler(evaluator *Evaluator) *Handler {
	return &Handler{evaluator: evaluator}
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me/capabilities", h.MyCapabilities)
}

// CapabilitiesResponse lists the capabilities of a role.
type CapabilitiesResponse struct {
	Role         domain.Role  `json:"role"`
	Capabilities []Capability `json:"capabilities"`
}

// MyCapabilities handles GET /me/capabilities.
func (h *Handler) MyCapabilities(w http.ResponseWriter, r *http.Request) {
	role, caps, err := h.evaluator.Capabilities(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
			{Error: ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "unauthorized"},
		})
		return
	}

	httputil.Success(w, http.StatusOK, CapabilitiesResponse{Role: role, Capabilities: caps})
}
