// Package postgres provides PostgreSQL implementation of the programs repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
	pkgpostgres "github.com/lestari-foundation/forestgate/internal/pkg/postgres"
	"github.com/lestari-foundation/forestgate/internal/programs"
)

const programColumns = `id, nama_program, kategori_program, jenis_program, kategori_hutan,
	carbon_project_id, deskripsi, target_luas_ha, tanggal_mulai, tanggal_selesai,
	status, submitted_by, submitted_at, reviewed_by, reviewed_at, review_notes,
	created_by, created_at, updated_at`

// Repository implements programs.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanProgram(row pgx.Row, p *domain.Program) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Type, &p.ForestCategory,
		&p.CarbonProjectID, &p.Description, &p.TargetAreaHa, &p.StartDate, &p.EndDate,
		&p.Status, &p.SubmittedBy, &p.SubmittedAt, &p.ReviewedBy, &p.ReviewedAt, &p.ReviewNotes,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
}

// Create inserts a program and fills its generated attributes.
func (r *Repository) Create(ctx context.Context, p *domain.Program) error {
	query := `
		INSERT INTO programs (nama_program, kategori_program, jenis_program, kategori_hutan,
			carbon_project_id, deskripsi, target_luas_ha, tanggal_mulai, tanggal_selesai,
			status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + programColumns
	err := scanProgram(r.db.QueryRow(ctx, query,
		p.Name, p.Category, p.Type, p.ForestCategory,
		p.CarbonProjectID, p.Description, p.TargetAreaHa, p.StartDate, p.EndDate,
		p.Status, p.CreatedBy,
	), p)
	if err != nil {
		if pkgpostgres.IsForeignKeyViolation(err) {
			return programs.ErrInvalidReference
		}
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

// GetByID returns a program by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`

	var p domain.Program
	if err := scanProgram(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, programs.ErrProgramNotFound
		}
		return nil, fmt.Errorf("get program: %w", err)
	}
	return &p, nil
}

// List returns programs matching filter, newest first, with the total count.
func (r *Repository) List(ctx context.Context, filter programs.ListFilter) ([]domain.Program, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("jenis_program = $%d", filter.Type)
	}
	if filter.CarbonProjectID != "" {
		add("carbon_project_id::text = $%d", filter.CarbonProjectID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM programs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + programColumns + ` FROM programs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Program, 0)
	for rows.Next() {
		var p domain.Program
		if err := scanProgram(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan program: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate programs: %w", err)
	}

	return items, total, nil
}

// Update replaces the editable attributes when the program is in an
// editable status, then fills p with the stored row.
func (r *Repository) Update(ctx context.Context, p *domain.Program, editable []domain.WorkflowStatus) error {
	query := `
		UPDATE programs
		SET nama_program = $2, kategori_program = $3, jenis_program = $4, kategori_hutan = $5,
			carbon_project_id = $6, deskripsi = $7, target_luas_ha = $8,
			tanggal_mulai = $9, tanggal_selesai = $10, updated_at = NOW()
		WHERE id = $1 AND status = ANY($11)
		RETURNING ` + programColumns
	err := scanProgram(r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.Category, p.Type, p.ForestCategory,
		p.CarbonProjectID, p.Description, p.TargetAreaHa, p.StartDate, p.EndDate,
		statusStrings(editable),
	), p)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return r.notEditableOrMissing(ctx, p.ID)
	}
	if pkgpostgres.IsForeignKeyViolation(err) {
		return programs.ErrInvalidReference
	}
	return fmt.Errorf("update program: %w", err)
}

// Delete removes a program in an editable status.
func (r *Repository) Delete(ctx context.Context, id string, editable []domain.WorkflowStatus) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM programs WHERE id = $1 AND status = ANY($2)`, id, statusStrings(editable))
	if err != nil {
		if pkgpostgres.IsForeignKeyViolation(err) {
			return programs.ErrProgramInUse
		}
		return fmt.Errorf("delete program: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.notEditableOrMissing(ctx, id)
	}
	return nil
}

func (r *Repository) notEditableOrMissing(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM programs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check program: %w", err)
	}
	if !exists {
		return programs.ErrProgramNotFound
	}
	return programs.ErrNotEditable
}

func statusStrings(statuses []domain.WorkflowStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
