// Package postgres provides PostgreSQL implementation of the notifications repository.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts all notifications with a single multi-row INSERT so the
// batch is stored entirely or not at all.
func (r *Repository) CreateBatch(ctx context.Context, items []*domain.Notification) error {
	if len(items) == 0 {
		return nil
	}

	const cols = 6
	byID := make(map[string]*domain.Notification, len(items))
	values := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*cols)
	for i, n := range items {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		n.ID = uuid.NewString()
		byID[n.ID] = n

		base := i * cols
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, n.ID, n.UserID, string(n.Type), n.Title, n.Message, payload)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, payload)
		VALUES ` + strings.Join(values, ", ") + `
		RETURNING id, created_at
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt); err != nil {
			return fmt.Errorf("scan notification: %w", err)
		}
		if n, ok := byID[id]; ok {
			n.CreatedAt = createdAt
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

// ListForUser returns a page of notifications addressed to userID.
func (r *Repository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, type, title, message, payload, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &payload, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &n.Payload); err != nil {
				return nil, 0, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}

	return items, total, nil
}
