package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	batches [][]*domain.Notification
	err     error
}

func (m *mockRepository) CreateBatch(_ context.Context, items []*domain.Notification) error {
	if m.err != nil {
		return m.err
	}
	for i, n := range items {
		n.ID = string(rune('a' + i))
	}
	m.batches = append(m.batches, items)
	return nil
}

func (m *mockRepository) ListForUser(_ context.Context, userID string, _, _ int) ([]domain.Notification, int, error) {
	var out []domain.Notification
	for _, b := range m.batches {
		for _, n := range b {
			if n.UserID == userID {
				out = append(out, *n)
			}
		}
	}
	return out, len(out), nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return NewService(repo, r)
}

func TestNotifyTransition_OnePerRecipient(t *testing.T) {
	// Arrange
	repo := &mockRepository{}
	svc := newTestService(t, repo)

	tr := domain.Transition{
		Kind: domain.KindProgram, ResourceID: "p-1", ResourceTitle: "P1",
		Action: "submit", From: domain.StatusDraft, To: domain.StatusSubmittedForReview,
	}

	// Act
	n, err := svc.NotifyTransition(context.Background(), tr, []string{"rev-1", "rev-2", "rev-1", ""})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, repo.batches, 1)
	batch := repo.batches[0]
	assert.Equal(t, "rev-1", batch[0].UserID)
	assert.Equal(t, "rev-2", batch[1].UserID)
	assert.Equal(t, domain.NotificationReviewRequested, batch[0].Type)
	assert.Equal(t, "p-1", batch[0].Payload["resource_id"])
	assert.Equal(t, "submitted_for_review", batch[0].Payload["status_to"])
}

func TestNotifyTransition_DecisionCarriesNotes(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(t, repo)

	notes := "incomplete budget"
	tr := domain.Transition{
		Kind: domain.KindProgram, ResourceID: "p-1", ResourceTitle: "P1",
		Action: "review", Decision: "reject", Notes: &notes,
		From: domain.StatusSubmittedForReview, To: domain.StatusRejected,
	}

	n, err := svc.NotifyTransition(context.Background(), tr, []string{"submitter"})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got := repo.batches[0][0]
	assert.Equal(t, domain.NotificationReviewDecision, got.Type)
	assert.Contains(t, got.Message, "incomplete budget")
	assert.Equal(t, "reject", got.Payload["decision"])
}

func TestNotifyTransition_NoRecipients(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(t, repo)

	n, err := svc.NotifyTransition(context.Background(), domain.Transition{Action: "submit"}, nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, repo.batches)
}

func TestNotifyTransition_StoreFailure(t *testing.T) {
	repo := &mockRepository{err: errors.New("insert failed")}
	svc := newTestService(t, repo)

	n, err := svc.NotifyTransition(context.Background(), domain.Transition{Action: "submit"}, []string{"a", "b"})

	require.Error(t, err)
	assert.Zero(t, n)
}
