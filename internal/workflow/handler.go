package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: access.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "unauthorized"},
	{Error: access.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
	{Error: ErrNotFound, Status: http.StatusNotFound, Message: "resource not found"},
	{Error: ErrInvalidTransition, Status: http.StatusBadRequest, Message: "invalid transition"},
	{Error: ErrValidationFailed, Status: http.StatusBadRequest, Message: "resource is incomplete"},
	{Error: ErrInvalidDecision, Status: http.StatusBadRequest, Message: "invalid review decision"},
	{Error: ErrStatusConflict, Status: http.StatusConflict, Message: "resource changed concurrently, retry"},
}

// HistoryLister returns the activity entries of a resource.
type HistoryLister interface {
	ListForResource(ctx context.Context, kind, resourceID string) ([]domain.ActivityEntry, error)
}

// Handler serves workflow actions for one or more resource kinds.
type Handler struct {
	tracker     *Tracker
	permissions Permissions
	history     HistoryLister
	validator   *validator.Validate
}

// NewHandler creates a new workflow handler.
func NewHandler(tracker *Tracker, permissions Permissions, history HistoryLister) *Handler {
	return &Handler{
		tracker:     tracker,
		permissions: permissions,
		history:     history,
		validator:   validator.New(),
	}
}

// RegisterRoutes registers the workflow routes of kind under prefix,
// e.g. "/programs". Routes require authentication.
func (h *Handler) RegisterRoutes(r chi.Router, prefix string, kind domain.ResourceKind) {
	r.Post(prefix+"/{id}/submit", h.Submit(kind))
	r.Post(prefix+"/{id}/start-review", h.StartReview(kind))
	r.Post(prefix+"/{id}/review", h.Review(kind))
	r.Post(prefix+"/{id}/reopen", h.Reopen(kind))
	r.Get(prefix+"/{id}/history", h.History(kind))
}

// ReviewRequest represents review request body.
type ReviewRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approve reject needs_revision"`
	Notes    *string `json:"notes" validate:"omitempty,max=4000"`
}

// ReopenRequest represents reopen request body.
type ReopenRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=4000"`
}

// Submit handles POST {prefix}/{id}/submit.
func (h *Handler) Submit(kind domain.ResourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := resourceID(w, r)
		if !ok {
			return
		}

		result, err := h.tracker.Submit(r.Context(), kind, id, httputil.GetUserID(r.Context()))
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		httputil.Success(w, http.StatusOK, result)
	}
}

// StartReview handles POST {prefix}/{id}/start-review.
func (h *Handler) StartReview(kind domain.ResourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := resourceID(w, r)
		if !ok {
			return
		}

		result, err := h.tracker.StartReview(r.Context(), kind, id, httputil.GetUserID(r.Context()))
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		httputil.Success(w, http.StatusOK, result)
	}
}

// Review handles POST {prefix}/{id}/review.
func (h *Handler) Review(kind domain.ResourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := resourceID(w, r)
		if !ok {
			return
		}

		var req ReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}

		result, err := h.tracker.Review(r.Context(), kind, id, httputil.GetUserID(r.Context()), Decision(req.Decision), req.Notes)
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		httputil.Success(w, http.StatusOK, result)
	}
}

// Reopen handles POST {prefix}/{id}/reopen. The body is optional.
func (h *Handler) Reopen(kind domain.ResourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := resourceID(w, r)
		if !ok {
			return
		}

		var req ReopenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}

		result, err := h.tracker.Reopen(r.Context(), kind, id, httputil.GetUserID(r.Context()), req.Reason)
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		httputil.Success(w, http.StatusOK, result)
	}
}

// History handles GET {prefix}/{id}/history.
func (h *Handler) History(kind domain.ResourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := resourceID(w, r)
		if !ok {
			return
		}

		def, _ := DefinitionFor(kind)
		if err := h.permissions.Check(r.Context(), def.ViewCapability, httputil.GetUserID(r.Context())); err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		entries, err := h.history.ListForResource(r.Context(), string(kind), id)
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		httputil.Success(w, http.StatusOK, entries)
	}
}

func resourceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	return httputil.IDParam(w, r, "id")
}
