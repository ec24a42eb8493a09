package finance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrProgramNotFound, Status: http.StatusNotFound},
	{Error: ErrTransactionNotFound, Status: http.StatusNotFound},
	{Error: ErrAlreadyDecided, Status: http.StatusConflict},
	{Error: ErrSelfApproval, Status: http.StatusForbidden},
	{Error: ErrInvalidYear, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for budgets and transactions.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new finance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers finance routes.
func (h *Handler) RegisterRoutes(r chi.Router, require access.Guard) {
	r.With(require(access.FinancialView)).Get("/programs/{id}/budgets", h.ListBudgets)
	r.With(require(access.FinancialBudgetManage)).Put("/programs/{id}/budgets/{year}", h.SetBudget)
	r.With(require(access.FinancialView)).Get("/programs/{id}/finance-summary", h.Summary)

	r.With(require(access.FinancialView)).Get("/transactions", h.ListTransactions)
	r.With(require(access.FinancialTransactionCreate)).Post("/transactions", h.CreateTransaction)
	r.With(require(access.FinancialView)).Get("/transactions/{id}", h.GetTransaction)
	r.With(require(access.FinancialTransactionApprove)).Post("/transactions/{id}/approve", h.Approve)
	r.With(require(access.FinancialTransactionApprove)).Post("/transactions/{id}/reject", h.Reject)
}

// BudgetRequest represents the body of PUT /programs/{id}/budgets/{year}.
type BudgetRequest struct {
	Amount float64 `json:"jumlah" validate:"gte=0"`
	Notes  string  `json:"catatan" validate:"max=2000"`
}

// TransactionRequest represents the body of POST /transactions.
type TransactionRequest struct {
	ProgramID   string    `json:"program_id" validate:"required,uuid"`
	Date        time.Time `json:"tanggal" validate:"required"`
	Type        string    `json:"jenis" validate:"required,oneof=PEMASUKAN PENGELUARAN"`
	Amount      float64   `json:"jumlah" validate:"gt=0"`
	Description string    `json:"keterangan" validate:"required,max=2000"`
}

// DecisionRequest represents the optional body of approve and reject.
type DecisionRequest struct {
	Note *string `json:"catatan" validate:"omitempty,max=2000"`
}

// ListBudgets handles GET /programs/{id}/budgets.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	programID, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	budgets, err := h.service.ListBudgets(r.Context(), programID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, budgets)
}

// SetBudget handles PUT /programs/{id}/budgets/{year}.
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	programID, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid year")
		return
	}

	var req BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	budget, err := h.service.SetBudget(r.Context(), programID, year, req.Amount, req.Notes, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, budget)
}

// Summary handles GET /programs/{id}/finance-summary?tahun=.
// The year defaults to the current one.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	programID, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	year := time.Now().Year()
	if v := r.URL.Query().Get("tahun"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid tahun")
			return
		}
		year = parsed
	}

	summary, err := h.service.Summary(r.Context(), programID, year)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, summary)
}

// ListTransactions handles GET /transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePage(r)
	q := r.URL.Query()

	filter := TransactionFilter{
		ProgramID: q.Get("program_id"),
		Status:    domain.TransactionStatus(q.Get("status")),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}
	switch filter.Status {
	case "", domain.TransactionPending, domain.TransactionApproved, domain.TransactionRejected:
	default:
		httputil.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	if v := q.Get("tahun"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid tahun")
			return
		}
		filter.Year = year
	}

	items, total, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, httputil.ListResult[domain.Transaction]{Items: items, Total: total})
}

// CreateTransaction handles POST /transactions.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	t := &domain.Transaction{
		ProgramID:   req.ProgramID,
		Date:        req.Date,
		Type:        domain.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
	}
	if err := h.service.CreateTransaction(r.Context(), t, httputil.GetUserID(r.Context())); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, t)
}

// GetTransaction handles GET /transactions/{id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	t, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}

// Approve handles POST /transactions/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject handles POST /transactions/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id, userID string, note *string) (*domain.Transaction, error),
) {
	id, ok := httputil.IDParam(w, r, "id")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	t, err := fn(r.Context(), id, httputil.GetUserID(r.Context()), req.Note)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}
