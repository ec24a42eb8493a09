// Package postgres provides the PostgreSQL resource store of the workflow
// tracker.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/workflow"
)

// table describes where a resource kind lives. Names are constants, never
// user input, so they are safe to format into SQL.
type table struct {
	name   string
	title  string
	fields []string
}

var tables = map[domain.ResourceKind]table{
	domain.KindProgram: {
		name:  "programs",
		title: "nama_program",
		fields: []string{
			workflow.FieldProgramName,
			workflow.FieldProgramCategory,
			workflow.FieldProgramType,
			workflow.FieldForestCategory,
			workflow.FieldCarbonProjectID,
		},
	},
	domain.KindCarbonProject: {
		name:  "carbon_projects",
		title: "nama_project",
		fields: []string{
			workflow.FieldProjectCode,
			workflow.FieldProjectName,
			workflow.FieldCarbonStandard,
			workflow.FieldMethodology,
			workflow.FieldSocialForestryID,
		},
	},
}

const auditColumns = "id, status, submitted_by, submitted_at, reviewed_by, reviewed_at, review_notes, updated_at"

// Store implements workflow.Store using PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new PostgreSQL workflow store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func lookupTable(kind domain.ResourceKind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("%w: %s", workflow.ErrUnknownKind, kind)
	}
	return t, nil
}

func (t table) selectList() string {
	cols := make([]string, 0, len(t.fields)+2)
	cols = append(cols, auditColumns, t.title)
	for _, f := range t.fields {
		cols = append(cols, fmt.Sprintf("COALESCE(%s::text, '')", f))
	}
	return strings.Join(cols, ", ")
}

// scan reads a selectList row; lead receives any columns returned before it.
func (t table) scan(row pgx.Row, kind domain.ResourceKind, lead ...any) (*workflow.Snapshot, error) {
	snap := workflow.Snapshot{Kind: kind, Fields: make(map[string]string, len(t.fields))}
	values := make([]string, len(t.fields))

	dest := append(lead,
		&snap.ID,
		&snap.Status,
		&snap.SubmittedBy,
		&snap.SubmittedAt,
		&snap.ReviewedBy,
		&snap.ReviewedAt,
		&snap.ReviewNotes,
		&snap.UpdatedAt,
		&snap.Title,
	)
	for i := range values {
		dest = append(dest, &values[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	for i, f := range t.fields {
		snap.Fields[f] = values[i]
	}
	return &snap, nil
}

// Snapshot loads the workflow view of a resource.
func (s *Store) Snapshot(ctx context.Context, kind domain.ResourceKind, id string) (*workflow.Snapshot, error) {
	t, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.selectList(), t.name)

	snap, err := t.scan(s.db.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("get %s snapshot: %w", kind, err)
	}
	return snap, nil
}

// CompareAndSet updates the status in one statement guarded by the current
// status and, when change.ExpectUpdatedAt is set, by updated_at. The row is
// locked by a sub-select so the status it held before the write can be
// returned. When no row matches it reads the row to tell a missing resource
// from a lost race.
func (s *Store) CompareAndSet(ctx context.Context, kind domain.ResourceKind, id string, from []domain.WorkflowStatus, change workflow.Change) (*workflow.Snapshot, domain.WorkflowStatus, error) {
	t, err := lookupTable(kind)
	if err != nil {
		return nil, "", err
	}

	expected := make([]string, len(from))
	for i, st := range from {
		expected[i] = string(st)
	}

	query := fmt.Sprintf(`
		UPDATE %[1]s SET
			status = $3,
			submitted_by = COALESCE($4, submitted_by),
			submitted_at = COALESCE($5, submitted_at),
			reviewed_by = COALESCE($6, reviewed_by),
			reviewed_at = COALESCE($7, reviewed_at),
			review_notes = CASE WHEN $8 THEN $9 ELSE review_notes END,
			updated_at = NOW()
		FROM (SELECT id AS prev_id, status AS prev_status FROM %[1]s WHERE id = $1 FOR UPDATE) prev
		WHERE id = prev.prev_id
			AND status = ANY($2)
			AND ($10::timestamptz IS NULL OR updated_at = $10)
		RETURNING prev.prev_status, %[2]s
	`, t.name, t.selectList())

	var previous domain.WorkflowStatus
	snap, err := t.scan(s.db.QueryRow(ctx, query,
		id,
		expected,
		string(change.To),
		change.SubmittedBy,
		change.SubmittedAt,
		change.ReviewedBy,
		change.ReviewedAt,
		change.SetNotes,
		change.ReviewNotes,
		change.ExpectUpdatedAt,
	), kind, &previous)
	if err == nil {
		return snap, previous, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("update %s status: %w", kind, err)
	}

	var current domain.WorkflowStatus
	err = s.db.QueryRow(ctx, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, t.name), id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", workflow.ErrNotFound
		}
		return nil, "", fmt.Errorf("get %s status: %w", kind, err)
	}
	return nil, "", &workflow.ConflictError{
		Current:  current,
		Modified: change.ExpectUpdatedAt != nil && slices.Contains(from, current),
	}
}
