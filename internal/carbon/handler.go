package carbon

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrProjectNotFound, Status: http.StatusNotFound},
	{Error: ErrNotEditable, Status: http.StatusConflict},
	{Error: ErrDuplicateCode, Status: http.StatusConflict},
	{Error: ErrProjectInUse, Status: http.StatusConflict},
	{Error: ErrInvalidReference, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for carbon projects.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new carbon project handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers carbon project routes.
func (h *Handler) RegisterRoutes(r chi.Router, require access.Guard) {
	r.With(require(access.CarbonProjectView)).Get("/carbon-projects", h.List)
	r.With(require(access.CarbonProjectManage)).Post("/carbon-projects", h.Create)
	r.With(require(access.CarbonProjectView)).Get("/carbon-projects/{id}", h.Get)
	r.With(require(access.CarbonProjectManage)).Put("/carbon-projects/{id}", h.Update)
	r.With(require(access.CarbonProjectManage)).Delete("/carbon-projects/{id}", h.Delete)
}

// ProjectRequest represents the request body for creating or replacing a carbon project.
type ProjectRequest struct {
	Code             string   `json:"kode_project" validate:"required,min=1,max=64"`
	Name             string   `json:"nama_project" validate:"required,min=1,max=255"`
	Standard         *string  `json:"standar_karbon" validate:"omitempty,oneof=VCS GOLD_STANDARD PLAN_VIVO SRN_PPI"`
	Methodology      *string  `json:"metodologi" validate:"omitempty,max=255"`
	SocialForestryID *string  `json:"perhutanan_sosial_id" validate:"omitempty,uuid"`
	AreaHa           *float64 `json:"luas_total_ha" validate:"omitempty,gte=0"`
	EstimatedTCO2e   *float64 `json:"estimasi_penyerapan_tco2e" validate:"omitempty,gte=0"`
	Province         string   `json:"provinsi" validate:"max=100"`
	Regency          string   `json:"kabupaten" validate:"max=100"`
}

// ToInput converts the request to service input.
func (r *ProjectRequest) ToInput() Input {
	in := Input{
		Code:             r.Code,
		Name:             r.Name,
		Methodology:      r.Methodology,
		SocialForestryID: r.SocialForestryID,
		AreaHa:           r.AreaHa,
		EstimatedTCO2e:   r.EstimatedTCO2e,
		Province:         r.Province,
		Regency:          r.Regency,
	}
	if r.Standard != nil {
		std := domain.CarbonStandard(*r.Standard)
		in.Standard = &std
	}
	return in
}

// Create handles POST /carbon-projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	project, err := h.service.Create(r.Context(), req.ToInput(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, project)
}

// Get handles GET /carbon-projects/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	project, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// List handles GET /carbon-projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePage(r)
	q := r.URL.Query()

	filter := ListFilter{
		Status:           domain.WorkflowStatus(q.Get("status")),
		Standard:         domain.CarbonStandard(q.Get("standar_karbon")),
		SocialForestryID: q.Get("perhutanan_sosial_id"),
		Province:         q.Get("provinsi"),
		Limit:            page.Limit,
		Offset:           page.Offset,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		httputil.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	if filter.Standard != "" && !filter.Standard.IsValid() {
		httputil.Error(w, http.StatusBadRequest, "invalid standar_karbon filter")
		return
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, httputil.ListResult[domain.CarbonProject]{Items: items, Total: total})
}

// Update handles PUT /carbon-projects/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	project, err := h.service.Update(r.Context(), id, req.ToInput(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// Delete handles DELETE /carbon-projects/{id}.
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ProjectRequest, bool) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return nil, false
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return nil, false
	}
	return &req, true
}
