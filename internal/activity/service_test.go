package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	entries   []domain.ActivityEntry
	appendErr error
	lastQuery Filter
}

func (m *mockRepository) Append(_ context.Context, e *domain.ActivityEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockRepository) List(_ context.Context, f Filter) ([]domain.ActivityEntry, error) {
	m.lastQuery = f
	return m.entries, nil
}

func TestRecord_SwallowsStoreFailure(t *testing.T) {
	repo := &mockRepository{appendErr: errors.New("disk full")}
	svc := NewService(repo)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), domain.ActivityEntry{Action: "program.create"})
	})
	assert.Empty(t, repo.entries)
}

func TestRecord_Appends(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	svc.Record(context.Background(), domain.ActivityEntry{ActorID: "u-1", Action: "program.create", ResourceKind: "program", ResourceID: "p-1"})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "program.create", repo.entries[0].Action)
}

func TestListForResource_FiltersByResource(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	_, err := svc.ListForResource(context.Background(), "program", "p-1")

	require.NoError(t, err)
	assert.Equal(t, "program", repo.lastQuery.ResourceKind)
	assert.Equal(t, "p-1", repo.lastQuery.ResourceID)
}
