// Package postgres provides PostgreSQL implementation of the finance repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/finance"
	pkgpostgres "github.com/lestari-foundation/forestgate/internal/pkg/postgres"
)

const transactionColumns = `id, program_id, tanggal, jenis, jumlah, keterangan, status,
	created_by, decided_by, decided_at, decision_note, created_at, updated_at`

// Repository implements finance.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertBudget inserts or replaces the budget of (program_id, tahun).
func (r *Repository) UpsertBudget(ctx context.Context, b *domain.Budget) error {
	query := `
		INSERT INTO budgets (program_id, tahun, jumlah, catatan, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (program_id, tahun) DO UPDATE SET
			jumlah = EXCLUDED.jumlah,
			catatan = EXCLUDED.catatan,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, b.ProgramID, b.Year, b.Amount, b.Notes, b.UpdatedBy).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if pkgpostgres.IsForeignKeyViolation(err) {
			return finance.ErrProgramNotFound
		}
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// ListBudgets returns the budgets of a program, newest year first.
func (r *Repository) ListBudgets(ctx context.Context, programID string) ([]domain.Budget, error) {
	query := `
		SELECT id, program_id, tahun, jumlah, catatan, updated_by, created_at, updated_at
		FROM budgets
		WHERE program_id = $1
		ORDER BY tahun DESC
	`
	rows, err := r.db.Query(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]domain.Budget, 0)
	for rows.Next() {
		var b domain.Budget
		if err := rows.Scan(&b.ID, &b.ProgramID, &b.Year, &b.Amount, &b.Notes, &b.UpdatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

func scanTransaction(row pgx.Row, t *domain.Transaction) error {
	return row.Scan(
		&t.ID, &t.ProgramID, &t.Date, &t.Type, &t.Amount, &t.Description, &t.Status,
		&t.CreatedBy, &t.DecidedBy, &t.DecidedAt, &t.DecisionNote, &t.CreatedAt, &t.UpdatedAt,
	)
}

// CreateTransaction inserts a transaction.
func (r *Repository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (program_id, tanggal, jenis, jumlah, keterangan, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + transactionColumns
	err := scanTransaction(r.db.QueryRow(ctx, query,
		t.ProgramID, t.Date, t.Type, t.Amount, t.Description, t.Status, t.CreatedBy,
	), t)
	if err != nil {
		if pkgpostgres.IsForeignKeyViolation(err) {
			return finance.ErrProgramNotFound
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetTransaction returns a transaction by id.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, finance.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// ListTransactions returns transactions matching filter, newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter finance.TransactionFilter) ([]domain.Transaction, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProgramID != "" {
		add("program_id::text = $%d", filter.ProgramID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Year != 0 {
		add("EXTRACT(YEAR FROM tanggal) = $%d", filter.Year)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		fmt.Sprintf(" ORDER BY tanggal DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Transaction, 0)
	for rows.Next() {
		var t domain.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return items, total, nil
}

// DecideTransaction applies d with a compare-and-swap on the pending status.
func (r *Repository) DecideTransaction(ctx context.Context, id string, d finance.Decision) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $2, decided_by = $3, decided_at = $4, decision_note = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND created_by <> $3
		RETURNING ` + transactionColumns

	var t domain.Transaction
	err := scanTransaction(r.db.QueryRow(ctx, query, id, d.Status, d.DecidedBy, d.At, d.Note), &t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decide transaction: %w", err)
	}

	var createdBy string
	err = r.db.QueryRow(ctx, `SELECT created_by FROM transactions WHERE id = $1`, id).Scan(&createdBy)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, finance.ErrTransactionNotFound
	case err != nil:
		return nil, fmt.Errorf("check transaction: %w", err)
	case createdBy == d.DecidedBy:
		return nil, finance.ErrSelfApproval
	}
	return nil, finance.ErrAlreadyDecided
}

// Summary aggregates the budget and transactions of a program for year.
// Remaining is left for the caller to derive.
func (r *Repository) Summary(ctx context.Context, programID string, year int) (*domain.ProgramFinanceSummary, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM programs WHERE id = $1)`, programID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check program: %w", err)
	}
	if !exists {
		return nil, finance.ErrProgramNotFound
	}

	query := `
		SELECT
			COALESCE((SELECT jumlah FROM budgets WHERE program_id = $1 AND tahun = $2), 0),
			COALESCE(SUM(jumlah) FILTER (WHERE jenis = 'PEMASUKAN' AND status = 'approved'), 0),
			COALESCE(SUM(jumlah) FILTER (WHERE jenis = 'PENGELUARAN' AND status = 'approved'), 0),
			COALESCE(SUM(jumlah) FILTER (WHERE jenis = 'PENGELUARAN' AND status = 'pending'), 0)
		FROM transactions
		WHERE program_id = $1 AND EXTRACT(YEAR FROM tanggal) = $2
	`
	s := domain.ProgramFinanceSummary{ProgramID: programID, Year: year}
	err := r.db.QueryRow(ctx, query, programID, year).
		Scan(&s.Budget, &s.ApprovedIncome, &s.ApprovedSpend, &s.PendingSpend)
	if err != nil {
		return nil, fmt.Errorf("finance summary: %w", err)
	}
	return &s, nil
}
