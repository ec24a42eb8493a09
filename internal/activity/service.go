// Package activity keeps the append-only log of mutations.
package activity

import (
	"context"
	"fmt"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/ctxlog"
)

// Filter narrows a listing of the activity log.
type Filter struct {
	ResourceKind string
	ResourceID   string
	ActorID      string
	Limit        int
	Offset       int
}

// Repository defines the interface for activity log storage.
type Repository interface {
	Append(ctx context.Context, entry *domain.ActivityEntry) error
	List(ctx context.Context, filter Filter) ([]domain.ActivityEntry, error)
}

// Service records and lists activity.
type Service struct {
	repo Repository
}

// NewService creates a new activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends entry. A failure is logged and never reaches the caller:
// the mutation being recorded has already been committed.
func (s *Service) Record(ctx context.Context, entry domain.ActivityEntry) {
	if err := s.repo.Append(ctx, &entry); err != nil {
		ctxlog.FromContext(ctx).Error("failed to record activity",
			"action", entry.Action,
			"resource_kind", entry.ResourceKind,
			"resource_id", entry.ResourceID,
			"error", err,
		)
	}
}

// List returns activity entries, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]domain.ActivityEntry, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// ListForResource returns the full history of one resource, newest first.
func (s *Service) ListForResource(ctx context.Context, kind, resourceID string) ([]domain.ActivityEntry, error) {
	return s.List(ctx, Filter{ResourceKind: kind, ResourceID: resourceID, Limit: 500})
}
