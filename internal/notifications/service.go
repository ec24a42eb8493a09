package notifications

import (
	"context"
	"fmt"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Page is a slice of a user's notifications.
type Page struct {
	Items []domain.Notification `json:"items"`
	Total int                   `json:"total"`
}

// Service builds and stores notifications.
type Service struct {
	repo     Repository
	renderer *Renderer
}

// NewService creates a new notifications service.
func NewService(repo Repository, renderer *Renderer) *Service {
	return &Service{repo: repo, renderer: renderer}
}

// NotifyTransition writes one notification per recipient describing t.
// Duplicate recipients receive a single notification. It returns the number
// of notifications written.
func (s *Service) NotifyTransition(ctx context.Context, t domain.Transition, recipients []string) (int, error) {
	payload := NewTransitionPayload(t)
	typ := notificationType(payload)

	unique := dedupe(recipients)
	if len(unique) == 0 {
		return 0, nil
	}

	title, message, err := s.renderer.Render(payload)
	if err != nil {
		recordFailed(string(typ), len(unique))
		return 0, fmt.Errorf("render notification: %w", err)
	}

	items := make([]*domain.Notification, 0, len(unique))
	for _, userID := range unique {
		items = append(items, &domain.Notification{
			UserID:  userID,
			Type:    typ,
			Title:   title,
			Message: message,
			Payload: payload.Map(),
		})
	}

	if err := s.repo.CreateBatch(ctx, items); err != nil {
		recordFailed(string(typ), len(items))
		return 0, fmt.Errorf("store notifications: %w", err)
	}

	recordWritten(string(typ), len(items))
	return len(items), nil
}

// ListForUser returns the notifications addressed to userID, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	items, total, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return &Page{Items: items, Total: total}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
