package carbon

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	projects map[string]*domain.CarbonProject
	nextID   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{projects: make(map[string]*domain.CarbonProject)}
}

func (m *mockRepository) Create(_ context.Context, p *domain.CarbonProject) error {
	for _, existing := range m.projects {
		if existing.Code == p.Code {
			return ErrDuplicateCode
		}
	}
	m.nextID++
	p.ID = fmt.Sprintf("project-%d", m.nextID)
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.CarbonProject, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) List(_ context.Context, _ ListFilter) ([]domain.CarbonProject, int, error) {
	out := make([]domain.CarbonProject, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepository) Update(_ context.Context, p *domain.CarbonProject, editable []domain.WorkflowStatus) error {
	stored, ok := m.projects[p.ID]
	if !ok {
		return ErrProjectNotFound
	}
	if !slices.Contains(editable, stored.Status) {
		return ErrNotEditable
	}
	p.Status = stored.Status
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string, editable []domain.WorkflowStatus) error {
	stored, ok := m.projects[id]
	if !ok {
		return ErrProjectNotFound
	}
	if !slices.Contains(editable, stored.Status) {
		return ErrNotEditable
	}
	delete(m.projects, id)
	return nil
}

type mockActivity struct {
	entries []domain.ActivityEntry
}

func (m *mockActivity) Record(_ context.Context, entry domain.ActivityEntry) {
	m.entries = append(m.entries, entry)
}

func sebangau() Input {
	vcs := domain.CarbonStandardVCS
	return Input{
		Code:     "CP-KT-001",
		Name:     "Gambut Sebangau",
		Standard: &vcs,
		Province: "Kalimantan Tengah",
	}
}

func TestService_Create(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	act := &mockActivity{}
	svc := NewService(repo, act)

	// Act
	p, err := svc.Create(context.Background(), sebangau(), "carbonist")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, p.Status)
	assert.Equal(t, "carbonist", p.CreatedBy)
	require.Len(t, act.entries, 1)
	assert.Equal(t, "carbon_project.created", act.entries[0].Action)
	assert.Equal(t, "CP-KT-001", act.entries[0].Details["kode_project"])
}

func TestService_Create_DuplicateCode(t *testing.T) {
	repo := newMockRepository()
	act := &mockActivity{}
	svc := NewService(repo, act)
	_, err := svc.Create(context.Background(), sebangau(), "carbonist")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), sebangau(), "carbonist")

	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Len(t, act.entries, 1)
}

func TestService_Update_RespectsWorkflow(t *testing.T) {
	tests := []struct {
		status  domain.WorkflowStatus
		wantErr error
	}{
		{domain.StatusDraft, nil},
		{domain.StatusNeedsRevision, nil},
		{domain.StatusSubmittedForReview, ErrNotEditable},
		{domain.StatusApproved, ErrNotEditable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			repo := newMockRepository()
			svc := NewService(repo, &mockActivity{})
			p, err := svc.Create(context.Background(), sebangau(), "carbonist")
			require.NoError(t, err)
			repo.projects[p.ID].Status = tt.status

			in := sebangau()
			in.Regency = "Pulang Pisau"
			_, err = svc.Update(context.Background(), p.ID, in, "carbonist")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.projects[p.ID].Regency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Pulang Pisau", repo.projects[p.ID].Regency)
		})
	}
}

func TestService_Delete_NotFound(t *testing.T) {
	act := &mockActivity{}
	svc := NewService(newMockRepository(), act)

	err := svc.Delete(context.Background(), "missing", "carbonist")

	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Empty(t, act.entries)
}
