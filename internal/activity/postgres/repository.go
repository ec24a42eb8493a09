// Package postgres provides PostgreSQL implementation of the activity repository.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/activity"
	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Repository implements activity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Append inserts an entry.
func (r *Repository) Append(ctx context.Context, entry *domain.ActivityEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	var actorID *string
	if _, err := uuid.Parse(entry.ActorID); err == nil {
		actorID = &entry.ActorID
	}

	query := `
		INSERT INTO activity_log (actor_id, action, resource_kind, resource_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = r.db.QueryRow(ctx, query,
		actorID,
		entry.Action,
		entry.ResourceKind,
		entry.ResourceID,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter activity.Filter) ([]domain.ActivityEntry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ResourceKind != "" {
		add("resource_kind = $%d", filter.ResourceKind)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.ActorID != "" {
		add("actor_id::text = $%d", filter.ActorID)
	}

	query := `
		SELECT id, COALESCE(actor_id::text, ''), action, resource_kind, resource_id, details, created_at
		FROM activity_log
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0)
	for rows.Next() {
		var e domain.ActivityEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceKind, &e.ResourceID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}
