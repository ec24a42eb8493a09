package programs

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrProgramNotFound, Status: http.StatusNotFound},
	{Error: ErrNotEditable, Status: http.StatusConflict},
	{Error: ErrProgramInUse, Status: http.StatusConflict},
	{Error: ErrInvalidReference, Status: http.StatusBadRequest},
	{Error: ErrInvalidDateRange, Status: http.StatusBadRequest},
	{Error: ErrForestCategoryUse, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for programs.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new programs handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers program routes. Workflow actions under
// /programs/{id} are registered by the workflow handler.
func (h *Handler) RegisterRoutes(r chi.Router, require access.Guard) {
	r.With(require(access.ProgramView)).Get("/programs", h.List)
	r.With(require(access.ProgramManagement)).Post("/programs", h.Create)
	r.With(require(access.ProgramView)).Get("/programs/{id}", h.Get)
	r.With(require(access.ProgramManagement)).Put("/programs/{id}", h.Update)
	r.With(require(access.ProgramManagement)).Delete("/programs/{id}", h.Delete)
}

// ProgramRequest represents the request body for creating or replacing a program.
type ProgramRequest struct {
	Name            string     `json:"nama_program" validate:"required,min=1,max=255"`
	Category        string     `json:"kategori_program" validate:"max=100"`
	Type            string     `json:"jenis_program" validate:"required,oneof=KARBON PEMBERDAYAAN_EKONOMI KONSERVASI LAINNYA"`
	ForestCategory  *string    `json:"kategori_hutan" validate:"omitempty,oneof=MINERAL GAMBUT"`
	CarbonProjectID *string    `json:"carbon_project_id" validate:"omitempty,uuid"`
	Description     string     `json:"deskripsi" validate:"max=4000"`
	TargetAreaHa    *float64   `json:"target_luas_ha" validate:"omitempty,gte=0"`
	StartDate       *time.Time `json:"tanggal_mulai"`
	EndDate         *time.Time `json:"tanggal_selesai"`
}

// ToInput converts the request to service input.
func (r *ProgramRequest) ToInput() Input {
	in := Input{
		Name:            r.Name,
		Category:        r.Category,
		Type:            domain.ProgramType(r.Type),
		CarbonProjectID: r.CarbonProjectID,
		Description:     r.Description,
		TargetAreaHa:    r.TargetAreaHa,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
	}
	if r.ForestCategory != nil {
		fc := domain.ForestCategory(*r.ForestCategory)
		in.ForestCategory = &fc
	}
	return in
}

// Create handles POST /programs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	program, err := h.service.Create(r.Context(), req.ToInput(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, program)
}

// Get handles GET /programs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	program, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, program)
}

// List handles GET /programs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePage(r)
	q := r.URL.Query()

	filter := ListFilter{
		Status:          domain.WorkflowStatus(q.Get("status")),
		Type:            domain.ProgramType(q.Get("jenis_program")),
		CarbonProjectID: q.Get("carbon_project_id"),
		Limit:           page.Limit,
		Offset:          page.Offset,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		httputil.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		httputil.Error(w, http.StatusBadRequest, "invalid jenis_program filter")
		return
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, httputil.ListResult[domain.Program]{Items: items, Total: total})
}

// Update handles PUT /programs/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	program, err := h.service.Update(r.Context(), id, req.ToInput(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, program)
}

// Delete handles DELETE /programs/{id}.
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ProgramRequest, bool) {
	var req ProgramRequest
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
