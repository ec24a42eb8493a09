package programs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	programs  map[string]*domain.Program
	createErr error
	nextID    int
}

func newMockRepository() *mockRepository {
	return &mockRepository{programs: make(map[string]*domain.Program)}
}

func (m *mockRepository) Create(_ context.Context, p *domain.Program) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	p.ID = fmt.Sprintf("program-%d", m.nextID)
	cp := *p
	m.programs[p.ID] = &cp
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return nil, ErrProgramNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]domain.Program, int, error) {
	out := make([]domain.Program, 0)
	for _, p := range m.programs {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepository) Update(_ context.Context, p *domain.Program, editable []domain.WorkflowStatus) error {
	stored, ok := m.programs[p.ID]
	if !ok {
		return ErrProgramNotFound
	}
	if !slices.Contains(editable, stored.Status) {
		return ErrNotEditable
	}
	p.Status = stored.Status
	p.CreatedBy = stored.CreatedBy
	cp := *p
	m.programs[p.ID] = &cp
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string, editable []domain.WorkflowStatus) error {
	stored, ok := m.programs[id]
	if !ok {
		return ErrProgramNotFound
	}
	if !slices.Contains(editable, stored.Status) {
		return ErrNotEditable
	}
	delete(m.programs, id)
	return nil
}

// mockActivity collects recorded entries.
type mockActivity struct {
	entries []domain.ActivityEntry
}

func (m *mockActivity) Record(_ context.Context, entry domain.ActivityEntry) {
	m.entries = append(m.entries, entry)
}

func validInput() Input {
	cpID := "c0a80101-0000-4000-8000-000000000001"
	gambut := domain.ForestCategoryGambut
	return Input{
		Name:            "Restorasi Gambut Pulang Pisau",
		Category:        "Restorasi",
		Type:            domain.ProgramTypeKarbon,
		ForestCategory:  &gambut,
		CarbonProjectID: &cpID,
	}
}

func TestService_Create(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	act := &mockActivity{}
	svc := NewService(repo, act)

	// Act
	p, err := svc.Create(context.Background(), validInput(), "planner-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, p.Status)
	assert.Equal(t, "planner-1", p.CreatedBy)
	assert.Nil(t, p.SubmittedBy)

	require.Len(t, act.entries, 1)
	assert.Equal(t, "program.created", act.entries[0].Action)
	assert.Equal(t, string(domain.KindProgram), act.entries[0].ResourceKind)
	assert.Equal(t, p.ID, act.entries[0].ResourceID)
}

func TestService_Create_InputErrors(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)

	tests := []struct {
		name    string
		mutate  func(in *Input)
		wantErr error
	}{
		{
			name: "end before start",
			mutate: func(in *Input) {
				in.StartDate, in.EndDate = &start, &end
			},
			wantErr: ErrInvalidDateRange,
		},
		{
			name: "forest category on non carbon program",
			mutate: func(in *Input) {
				in.Type = domain.ProgramTypeKonservasi
			},
			wantErr: ErrForestCategoryUse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := newMockRepository()
			act := &mockActivity{}
			svc := NewService(repo, act)
			in := validInput()
			tt.mutate(&in)

			// Act
			_, err := svc.Create(context.Background(), in, "planner-1")

			// Assert
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.programs)
			assert.Empty(t, act.entries)
		})
	}
}

func TestService_Create_RepositoryError(t *testing.T) {
	repo := newMockRepository()
	repo.createErr = ErrInvalidReference
	act := &mockActivity{}
	svc := NewService(repo, act)

	_, err := svc.Create(context.Background(), validInput(), "planner-1")

	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Empty(t, act.entries)
}

func TestService_Update_EditableStatuses(t *testing.T) {
	tests := []struct {
		status  domain.WorkflowStatus
		wantErr error
	}{
		{domain.StatusDraft, nil},
		{domain.StatusNeedsRevision, nil},
		{domain.StatusSubmittedForReview, ErrNotEditable},
		{domain.StatusUnderReview, ErrNotEditable},
		{domain.StatusApproved, ErrNotEditable},
		{domain.StatusRejected, ErrNotEditable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			// Arrange
			repo := newMockRepository()
			svc := NewService(repo, &mockActivity{})
			p, err := svc.Create(context.Background(), validInput(), "planner-1")
			require.NoError(t, err)
			repo.programs[p.ID].Status = tt.status

			in := validInput()
			in.Name = "Renamed"

			// Act
			updated, err := svc.Update(context.Background(), p.ID, in, "planner-1")

			// Assert
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "Restorasi Gambut Pulang Pisau", repo.programs[p.ID].Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Renamed", updated.Name)
			assert.Equal(t, tt.status, updated.Status)
		})
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(newMockRepository(), &mockActivity{})

	_, err := svc.Update(context.Background(), "missing", validInput(), "planner-1")

	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestService_Delete(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	act := &mockActivity{}
	svc := NewService(repo, act)
	p, err := svc.Create(context.Background(), validInput(), "planner-1")
	require.NoError(t, err)

	// Act
	err = svc.Delete(context.Background(), p.ID, "planner-1")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, repo.programs)
	require.Len(t, act.entries, 2)
	assert.Equal(t, "program.deleted", act.entries[1].Action)
}

func TestService_Delete_AfterSubmission(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, &mockActivity{})
	p, err := svc.Create(context.Background(), validInput(), "planner-1")
	require.NoError(t, err)
	repo.programs[p.ID].Status = domain.StatusSubmittedForReview

	err = svc.Delete(context.Background(), p.ID, "planner-1")

	assert.ErrorIs(t, err, ErrNotEditable)
	assert.Len(t, repo.programs, 1)
}

func TestService_Get_WrapsNotFound(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Get(context.Background(), "missing")

	assert.True(t, errors.Is(err, ErrProgramNotFound))
}
