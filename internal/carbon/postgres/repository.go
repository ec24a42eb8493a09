// Package postgres provides PostgreSQL implementation of the carbon project repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/carbon"
	"github.com/lestari-foundation/forestgate/internal/domain"
	pkgpostgres "github.com/lestari-foundation/forestgate/internal/pkg/postgres"
)

const projectColumns = `id, kode_project, nama_project, standar_karbon, metodologi,
	perhutanan_sosial_id, luas_total_ha, estimasi_penyerapan_tco2e, provinsi, kabupaten,
	status, submitted_by, submitted_at, reviewed_by, reviewed_at, review_notes,
	created_by, created_at, updated_at`

// Repository implements carbon.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanProject(row pgx.Row, p *domain.CarbonProject) error {
	return row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Standard, &p.Methodology,
		&p.SocialForestryID, &p.AreaHa, &p.EstimatedTCO2e, &p.Province, &p.Regency,
		&p.Status, &p.SubmittedBy, &p.SubmittedAt, &p.ReviewedBy, &p.ReviewedAt, &p.ReviewNotes,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
}

func mapWriteError(err error) error {
	switch {
	case pkgpostgres.IsUniqueViolation(err):
		return carbon.ErrDuplicateCode
	case pkgpostgres.IsForeignKeyViolation(err):
		return carbon.ErrInvalidReference
	}
	return err
}

// Create inserts a project and fills its generated attributes.
func (r *Repository) Create(ctx context.Context, p *domain.CarbonProject) error {
	query := `
		INSERT INTO carbon_projects (kode_project, nama_project, standar_karbon, metodologi,
			perhutanan_sosial_id, luas_total_ha, estimasi_penyerapan_tco2e, provinsi, kabupaten,
			status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + projectColumns
	err := scanProject(r.db.QueryRow(ctx, query,
		p.Code, p.Name, p.Standard, p.Methodology,
		p.SocialForestryID, p.AreaHa, p.EstimatedTCO2e, p.Province, p.Regency,
		p.Status, p.CreatedBy,
	), p)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert carbon project: %w", err)
	}
	return nil
}

// GetByID returns a project by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.CarbonProject, error) {
	query := `SELECT ` + projectColumns + ` FROM carbon_projects WHERE id = $1`

	var p domain.CarbonProject
	if err := scanProject(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, carbon.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get carbon project: %w", err)
	}
	return &p, nil
}

// List returns projects matching filter ordered by code, with the total count.
func (r *Repository) List(ctx context.Context, filter carbon.ListFilter) ([]domain.CarbonProject, int, error) {
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
	if filter.Standard != "" {
		add("standar_karbon = $%d", filter.Standard)
	}
	if filter.SocialForestryID != "" {
		add("perhutanan_sosial_id::text = $%d", filter.SocialForestryID)
	}
	if filter.Province != "" {
		add("provinsi ILIKE $%d", filter.Province)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM carbon_projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count carbon projects: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + projectColumns + ` FROM carbon_projects` + where +
		fmt.Sprintf(" ORDER BY kode_project LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list carbon projects: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CarbonProject, 0)
	for rows.Next() {
		var p domain.CarbonProject
		if err := scanProject(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan carbon project: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate carbon projects: %w", err)
	}

	return items, total, nil
}

// Update replaces the editable attributes when the project is in an
// editable status, then fills p with the stored row.
func (r *Repository) Update(ctx context.Context, p *domain.CarbonProject, editable []domain.WorkflowStatus) error {
	query := `
		UPDATE carbon_projects
		SET kode_project = $2, nama_project = $3, standar_karbon = $4, metodologi = $5,
			perhutanan_sosial_id = $6, luas_total_ha = $7, estimasi_penyerapan_tco2e = $8,
			provinsi = $9, kabupaten = $10, updated_at = NOW()
		WHERE id = $1 AND status = ANY($11)
		RETURNING ` + projectColumns
	err := scanProject(r.db.QueryRow(ctx, query,
		p.ID, p.Code, p.Name, p.Standard, p.Methodology,
		p.SocialForestryID, p.AreaHa, p.EstimatedTCO2e, p.Province, p.Regency,
		statusStrings(editable),
	), p)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return r.notEditableOrMissing(ctx, p.ID)
	}
	if mapped := mapWriteError(err); mapped != err {
		return mapped
	}
	return fmt.Errorf("update carbon project: %w", err)
}

// Delete removes a project in an editable status.
func (r *Repository) Delete(ctx context.Context, id string, editable []domain.WorkflowStatus) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM carbon_projects WHERE id = $1 AND status = ANY($2)`, id, statusStrings(editable))
	if err != nil {
		if pkgpostgres.IsForeignKeyViolation(err) {
			return carbon.ErrProjectInUse
		}
		return fmt.Errorf("delete carbon project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.notEditableOrMissing(ctx, id)
	}
	return nil
}

func (r *Repository) notEditableOrMissing(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM carbon_projects WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check carbon project: %w", err)
	}
	if !exists {
		return carbon.ErrProjectNotFound
	}
	return carbon.ErrNotEditable
}

func statusStrings(statuses []domain.WorkflowStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
