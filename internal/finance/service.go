// Package finance tracks program budgets and transactions, including the
// approval of pending transactions.
package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Finance errors.
var (
	ErrProgramNotFound     = errors.New("program not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyDecided      = errors.New("transaction has already been decided")
	ErrSelfApproval        = errors.New("transaction creator cannot decide on it")
	ErrInvalidYear         = errors.New("tahun must be between 2000 and 2100")
)

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	ProgramID string
	Status    domain.TransactionStatus
	Year      int
	Limit     int
	Offset    int
}

// Decision is the outcome applied to a pending transaction.
type Decision struct {
	Status    domain.TransactionStatus
	DecidedBy string
	Note      *string
	At        time.Time
}

// Repository defines the interface for finance storage.
type Repository interface {
	UpsertBudget(ctx context.Context, b *domain.Budget) error
	ListBudgets(ctx context.Context, programID string) ([]domain.Budget, error)
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, int, error)
	// DecideTransaction moves a pending transaction to d.Status unless it was
	// created by d.DecidedBy. It returns ErrAlreadyDecided when the
	// transaction is no longer pending.
	DecideTransaction(ctx context.Context, id string, d Decision) (*domain.Transaction, error)
	Summary(ctx context.Context, programID string, year int) (*domain.ProgramFinanceSummary, error)
}

// ActivityRecorder receives an entry per mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// Service implements finance business logic.
type Service struct {
	repo     Repository
	activity ActivityRecorder
	now      func() time.Time
}

// NewService creates a new finance service.
func NewService(repo Repository, activity ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity, now: time.Now}
}

func validYear(year int) bool {
	return year >= 2000 && year <= 2100
}

// SetBudget creates or replaces the budget of a program for one year.
func (s *Service) SetBudget(ctx context.Context, programID string, year int, amount float64, notes, userID string) (*domain.Budget, error) {
	if !validYear(year) {
		return nil, ErrInvalidYear
	}

	b := &domain.Budget{
		ProgramID: programID,
		Year:      year,
		Amount:    amount,
		Notes:     notes,
		UpdatedBy: userID,
	}
	if err := s.repo.UpsertBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("set budget: %w", err)
	}

	s.record(ctx, "finance.budget_set", "budget", b.ID, userID, map[string]any{
		"program_id": programID,
		"tahun":      year,
		"jumlah":     amount,
	})
	return b, nil
}

// ListBudgets returns the budgets of a program, newest year first.
func (s *Service) ListBudgets(ctx context.Context, programID string) ([]domain.Budget, error) {
	budgets, err := s.repo.ListBudgets(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// CreateTransaction records a pending transaction.
func (s *Service) CreateTransaction(ctx context.Context, t *domain.Transaction, userID string) error {
	t.Status = domain.TransactionPending
	t.CreatedBy = userID
	t.DecidedBy, t.DecidedAt, t.DecisionNote = nil, nil, nil

	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	s.record(ctx, "finance.transaction_created", "transaction", t.ID, userID, map[string]any{
		"program_id": t.ProgramID,
		"jenis":      string(t.Type),
		"jumlah":     t.Amount,
	})
	return nil
}

// GetTransaction returns a transaction by id.
func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns transactions matching filter with the total count.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, int, error) {
	items, total, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}

// Approve marks a pending transaction approved.
func (s *Service) Approve(ctx context.Context, id, userID string, note *string) (*domain.Transaction, error) {
	return s.decide(ctx, id, userID, domain.TransactionApproved, note)
}

// Reject marks a pending transaction rejected.
func (s *Service) Reject(ctx context.Context, id, userID string, note *string) (*domain.Transaction, error) {
	return s.decide(ctx, id, userID, domain.TransactionRejected, note)
}

func (s *Service) decide(ctx context.Context, id, userID string, to domain.TransactionStatus, note *string) (*domain.Transaction, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if current.CreatedBy == userID {
		return nil, ErrSelfApproval
	}
	if current.Status != domain.TransactionPending {
		return nil, ErrAlreadyDecided
	}

	t, err := s.repo.DecideTransaction(ctx, id, Decision{
		Status:    to,
		DecidedBy: userID,
		Note:      note,
		At:        s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("decide transaction: %w", err)
	}

	s.record(ctx, "finance.transaction_"+string(to), "transaction", id, userID, map[string]any{
		"program_id": t.ProgramID,
		"jumlah":     t.Amount,
	})
	return t, nil
}

// Summary compares the budget of a program for a year with its approved
// and pending transactions.
func (s *Service) Summary(ctx context.Context, programID string, year int) (*domain.ProgramFinanceSummary, error) {
	if !validYear(year) {
		return nil, ErrInvalidYear
	}
	summary, err := s.repo.Summary(ctx, programID, year)
	if err != nil {
		return nil, fmt.Errorf("finance summary: %w", err)
	}
	summary.Remaining = summary.Budget - summary.ApprovedSpend
	return summary, nil
}

func (s *Service) record(ctx context.Context, action, kind, id, userID string, details map[string]any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.ActivityEntry{
		ActorID:      userID,
		Action:       action,
		ResourceKind: kind,
		ResourceID:   id,
		Details:      details,
	})
}
