// Package carbon manages carbon projects outside of their review workflow.
package carbon

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Carbon project errors.
var (
	ErrProjectNotFound  = errors.New("carbon project not found")
	ErrNotEditable      = errors.New("carbon project can only be changed in draft or needs_revision")
	ErrDuplicateCode    = errors.New("kode_project already exists")
	ErrInvalidReference = errors.New("social forestry licence does not exist")
	ErrProjectInUse     = errors.New("carbon project is referenced by programs")
)

// EditableStatuses are the statuses in which a project accepts CRUD changes.
var EditableStatuses = []domain.WorkflowStatus{domain.StatusDraft, domain.StatusNeedsRevision}

// ListFilter narrows a project listing.
type ListFilter struct {
	Status           domain.WorkflowStatus
	Standard         domain.CarbonStandard
	SocialForestryID string
	Province         string
	Limit            int
	Offset           int
}

// Repository defines the interface for carbon project storage.
type Repository interface {
	Create(ctx context.Context, p *domain.CarbonProject) error
	GetByID(ctx context.Context, id string) (*domain.CarbonProject, error)
	List(ctx context.Context, filter ListFilter) ([]domain.CarbonProject, int, error)
	Update(ctx context.Context, p *domain.CarbonProject, editable []domain.WorkflowStatus) error
	Delete(ctx context.Context, id string, editable []domain.WorkflowStatus) error
}

// ActivityRecorder receives an entry per mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// Input holds the editable attributes of a carbon project.
type Input struct {
	Code             string
	Name             string
	Standard         *domain.CarbonStandard
	Methodology      *string
	SocialForestryID *string
	AreaHa           *float64
	EstimatedTCO2e   *float64
	Province         string
	Regency          string
}

func (in Input) apply(p *domain.CarbonProject) {
	p.Code = in.Code
	p.Name = in.Name
	p.Standard = in.Standard
	p.Methodology = in.Methodology
	p.SocialForestryID = in.SocialForestryID
	p.AreaHa = in.AreaHa
	p.EstimatedTCO2e = in.EstimatedTCO2e
	p.Province = in.Province
	p.Regency = in.Regency
}

// Service implements carbon project business logic.
type Service struct {
	repo     Repository
	activity ActivityRecorder
}

// NewService creates a new carbon project service.
func NewService(repo Repository, activity ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity}
}

// Create stores a new project in draft.
func (s *Service) Create(ctx context.Context, in Input, userID string) (*domain.CarbonProject, error) {
	p := &domain.CarbonProject{CreatedBy: userID}
	in.apply(p)
	p.Status = domain.StatusDraft

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create carbon project: %w", err)
	}

	s.record(ctx, "carbon_project.created", p.ID, userID, map[string]any{"kode_project": p.Code})
	return p, nil
}

// Get returns a project by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.CarbonProject, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get carbon project: %w", err)
	}
	return p, nil
}

// List returns projects matching filter with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.CarbonProject, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list carbon projects: %w", err)
	}
	return items, total, nil
}

// Update replaces the editable attributes of a project.
func (s *Service) Update(ctx context.Context, id string, in Input, userID string) (*domain.CarbonProject, error) {
	p := &domain.CarbonProject{ID: id}
	in.apply(p)

	if err := s.repo.Update(ctx, p, EditableStatuses); err != nil {
		return nil, fmt.Errorf("update carbon project: %w", err)
	}

	s.record(ctx, "carbon_project.updated", id, userID, nil)
	return p, nil
}

// Delete removes a project that has not entered review.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, EditableStatuses); err != nil {
		return fmt.Errorf("delete carbon project: %w", err)
	}

	s.record(ctx, "carbon_project.deleted", id, userID, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action, id, userID string, details map[string]any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.ActivityEntry{
		ActorID:      userID,
		Action:       action,
		ResourceKind: string(domain.KindCarbonProject),
		ResourceID:   id,
		Details:      details,
	})
}
