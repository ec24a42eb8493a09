// Package postgres provides PostgreSQL implementation of the forestry repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/forestry"
	"github.com/lestari-foundation/forestgate/internal/pkg/ctxlog"
	pkgpostgres "github.com/lestari-foundation/forestgate/internal/pkg/postgres"
)

const licenceColumns = `id, nomor_sk, tanggal_sk, nama_kelompok, skema, provinsi, kabupaten,
	desa, luas_ha, jumlah_kk, created_by, created_at, updated_at`

// Repository implements forestry.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanLicence(row pgx.Row, sf *domain.SocialForestry) error {
	return row.Scan(
		&sf.ID, &sf.LicenseNumber, &sf.LicenseDate, &sf.GroupName, &sf.Scheme, &sf.Province, &sf.Regency,
		&sf.Village, &sf.AreaHa, &sf.Households, &sf.CreatedBy, &sf.CreatedAt, &sf.UpdatedAt,
	)
}

// Create inserts a licence.
func (r *Repository) Create(ctx context.Context, sf *domain.SocialForestry) error {
	query := `
		INSERT INTO social_forestry (nomor_sk, tanggal_sk, nama_kelompok, skema, provinsi,
			kabupaten, desa, luas_ha, jumlah_kk, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + licenceColumns
	err := scanLicence(r.db.QueryRow(ctx, query,
		sf.LicenseNumber, sf.LicenseDate, sf.GroupName, sf.Scheme, sf.Province,
		sf.Regency, sf.Village, sf.AreaHa, sf.Households, sf.CreatedBy,
	), sf)
	if err != nil {
		if pkgpostgres.IsUniqueViolation(err) {
			return forestry.ErrDuplicateLicense
		}
		return fmt.Errorf("insert licence: %w", err)
	}
	return nil
}

// GetByID returns a licence by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.SocialForestry, error) {
	var sf domain.SocialForestry
	err := scanLicence(r.db.QueryRow(ctx, `SELECT `+licenceColumns+` FROM social_forestry WHERE id = $1`, id), &sf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, forestry.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("get licence: %w", err)
	}
	return &sf, nil
}

// List returns licences matching filter ordered by province and group name.
func (r *Repository) List(ctx context.Context, filter forestry.ListFilter) ([]domain.SocialForestry, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.Province != "" {
		add("provinsi ILIKE $?", filter.Province)
	}
	if filter.Scheme != "" {
		add("skema = $?", filter.Scheme)
	}
	if filter.Search != "" {
		add("(nomor_sk ILIKE $? OR nama_kelompok ILIKE $?)", "%"+filter.Search+"%")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM social_forestry`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count licences: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + licenceColumns + ` FROM social_forestry` + where +
		fmt.Sprintf(" ORDER BY provinsi, nama_kelompok, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list licences: %w", err)
	}
	defer rows.Close()

	items := make([]domain.SocialForestry, 0)
	for rows.Next() {
		var sf domain.SocialForestry
		if err := scanLicence(rows, &sf); err != nil {
			return nil, 0, fmt.Errorf("scan licence: %w", err)
		}
		items = append(items, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate licences: %w", err)
	}

	return items, total, nil
}

// Update replaces the attributes of a licence and fills sf with the stored row.
func (r *Repository) Update(ctx context.Context, sf *domain.SocialForestry) error {
	query := `
		UPDATE social_forestry
		SET nomor_sk = $2, tanggal_sk = $3, nama_kelompok = $4, skema = $5, provinsi = $6,
			kabupaten = $7, desa = $8, luas_ha = $9, jumlah_kk = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + licenceColumns
	err := scanLicence(r.db.QueryRow(ctx, query,
		sf.ID, sf.LicenseNumber, sf.LicenseDate, sf.GroupName, sf.Scheme, sf.Province,
		sf.Regency, sf.Village, sf.AreaHa, sf.Households,
	), sf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return forestry.ErrLicenseNotFound
		}
		if pkgpostgres.IsUniqueViolation(err) {
			return forestry.ErrDuplicateLicense
		}
		return fmt.Errorf("update licence: %w", err)
	}
	return nil
}

// Delete removes a licence.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM social_forestry WHERE id = $1`, id)
	if err != nil {
		if pkgpostgres.IsForeignKeyViolation(err) {
			return forestry.ErrLicenseInUse
		}
		return fmt.Errorf("delete licence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return forestry.ErrLicenseNotFound
	}
	return nil
}

// Upsert writes items keyed by nomor_sk in one transaction. The original
// creator of an existing licence is preserved.
func (r *Repository) Upsert(ctx context.Context, items []*domain.SocialForestry) ([]bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.FromContext(ctx).Error("failed to rollback transaction", "error", err)
		}
	}()

	const query = `
		INSERT INTO social_forestry (nomor_sk, tanggal_sk, nama_kelompok, skema, provinsi,
			kabupaten, desa, luas_ha, jumlah_kk, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (nomor_sk) DO UPDATE SET
			tanggal_sk = EXCLUDED.tanggal_sk,
			nama_kelompok = EXCLUDED.nama_kelompok,
			skema = EXCLUDED.skema,
			provinsi = EXCLUDED.provinsi,
			kabupaten = EXCLUDED.kabupaten,
			desa = EXCLUDED.desa,
			luas_ha = EXCLUDED.luas_ha,
			jumlah_kk = EXCLUDED.jumlah_kk,
			updated_at = NOW()
		RETURNING id, created_by, created_at, updated_at, (xmax = 0) AS inserted`

	batch := &pgx.Batch{}
	for _, sf := range items {
		batch.Queue(query,
			sf.LicenseNumber, sf.LicenseDate, sf.GroupName, sf.Scheme, sf.Province,
			sf.Regency, sf.Village, sf.AreaHa, sf.Households, sf.CreatedBy,
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := make([]bool, len(items))
	for i, sf := range items {
		if err := results.QueryRow().Scan(&sf.ID, &sf.CreatedBy, &sf.CreatedAt, &sf.UpdatedAt, &inserted[i]); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("upsert licence %s: %w", sf.LicenseNumber, err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}
