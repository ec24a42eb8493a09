// Package notifications stores the in-app notifications produced by
// workflow transitions.
package notifications

import (
	"context"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Repository defines the interface for notifications data access.
// Notifications are write-once: there is no update or delete.
type Repository interface {
	// CreateBatch inserts all notifications in one statement, filling in
	// their ids and creation times.
	CreateBatch(ctx context.Context, items []*domain.Notification) error
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error)
}
