package forestry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrLicenseNotFound, Status: http.StatusNotFound},
	{Error: ErrDuplicateLicense, Status: http.StatusConflict},
	{Error: ErrLicenseInUse, Status: http.StatusConflict},
	{Error: ErrEmptyImport, Status: http.StatusBadRequest},
	{Error: ErrTooManyRows, Status: http.StatusRequestEntityTooLarge},
}

// Handler handles HTTP requests for social-forestry licences.
type Handler struct {
	service *Service
}

// NewHandler creates a new forestry handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers licence routes. Imports are limited to
// importPerMinute requests per user.
func (h *Handler) RegisterRoutes(r chi.Router, require access.Guard, importPerMinute int) {
	r.With(require(access.PSView)).Get("/social-forestry", h.List)
	r.With(require(access.PSManage)).Post("/social-forestry", h.Create)
	r.With(require(access.PSView)).Get("/social-forestry/{id}", h.Get)
	r.With(require(access.PSManage)).Put("/social-forestry/{id}", h.Update)
	r.With(require(access.PSManage)).Delete("/social-forestry/{id}", h.Delete)

	limiter := httprate.Limit(importPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httputil.Error(w, http.StatusTooManyRequests, "too many import requests")
		}),
	)
	r.With(require(access.DataImport), limiter).Post("/social-forestry/import", h.Import)
}

func rateLimitKey(r *http.Request) (string, error) {
	if userID := httputil.GetUserID(r.Context()); userID != "" {
		return "user:" + userID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// ImportRequest represents the body of POST /social-forestry/import. Rows
// come from a spreadsheet already parsed by the client.
type ImportRequest struct {
	Rows []Input `json:"rows"`
}

// Create handles POST /social-forestry.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	sf, err := h.service.Create(r.Context(), *in, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, sf)
}

// Get handles GET /social-forestry/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	sf, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, sf)
}

// List handles GET /social-forestry.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePage(r)
	q := r.URL.Query()

	filter := ListFilter{
		Province: q.Get("provinsi"),
		Scheme:   domain.ForestryScheme(q.Get("skema")),
		Search:   q.Get("q"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if filter.Scheme != "" && !filter.Scheme.IsValid() {
		httputil.Error(w, http.StatusBadRequest, "invalid skema filter")
		return
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, httputil.ListResult[domain.SocialForestry]{Items: items, Total: total})
}

// Update handles PUT /social-forestry/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	sf, err := h.service.Update(r.Context(), id, *in, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, sf)
}

// Delete handles DELETE /social-forestry/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, httputil.GetUserID(r.Context())); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /social-forestry/import.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	report, err := h.service.Import(r.Context(), req.Rows, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, report)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Input, bool) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return nil, false
	}

	if err := h.service.Validator().Struct(in); err != nil {
		httputil.ValidationError(w, err)
		return nil, false
	}
	return &in, true
}
