// Package programs manages foundation programs outside of their review workflow.
package programs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Program errors.
var (
	ErrProgramNotFound   = errors.New("program not found")
	ErrNotEditable       = errors.New("program can only be changed in draft or needs_revision")
	ErrInvalidReference  = errors.New("carbon project does not exist")
	ErrInvalidDateRange  = errors.New("tanggal_selesai must not be before tanggal_mulai")
	ErrForestCategoryUse = errors.New("kategori_hutan only applies to KARBON programs")
	ErrProgramInUse      = errors.New("program has financial records")
)

// EditableStatuses are the statuses in which a program accepts CRUD changes.
var EditableStatuses = []domain.WorkflowStatus{domain.StatusDraft, domain.StatusNeedsRevision}

// ListFilter narrows a program listing.
type ListFilter struct {
	Status          domain.WorkflowStatus
	Type            domain.ProgramType
	CarbonProjectID string
	Limit           int
	Offset          int
}

// Repository defines the interface for program storage.
type Repository interface {
	Create(ctx context.Context, p *domain.Program) error
	GetByID(ctx context.Context, id string) (*domain.Program, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Program, int, error)
	// Update and Delete only touch rows whose status is in editable. They
	// return ErrNotEditable when the row exists in another status.
	Update(ctx context.Context, p *domain.Program, editable []domain.WorkflowStatus) error
	Delete(ctx context.Context, id string, editable []domain.WorkflowStatus) error
}

// ActivityRecorder receives an entry per mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// Input holds the editable attributes of a program.
type Input struct {
	Name            string
	Category        string
	Type            domain.ProgramType
	ForestCategory  *domain.ForestCategory
	CarbonProjectID *string
	Description     string
	TargetAreaHa    *float64
	StartDate       *time.Time
	EndDate         *time.Time
}

func (in Input) validate() error {
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return ErrInvalidDateRange
	}
	if in.ForestCategory != nil && in.Type != domain.ProgramTypeKarbon {
		return ErrForestCategoryUse
	}
	return nil
}

func (in Input) apply(p *domain.Program) {
	p.Name = in.Name
	p.Category = in.Category
	p.Type = in.Type
	p.ForestCategory = in.ForestCategory
	p.CarbonProjectID = in.CarbonProjectID
	p.Description = in.Description
	p.TargetAreaHa = in.TargetAreaHa
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
}

// Service implements program business logic.
type Service struct {
	repo     Repository
	activity ActivityRecorder
}

// NewService creates a new programs service.
func NewService(repo Repository, activity ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity}
}

// Create stores a new program in draft.
func (s *Service) Create(ctx context.Context, in Input, userID string) (*domain.Program, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &domain.Program{CreatedBy: userID}
	in.apply(p)
	p.Status = domain.StatusDraft

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	s.record(ctx, "program.created", p.ID, userID, map[string]any{"nama_program": p.Name})
	return p, nil
}

// Get returns a program by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Program, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	return p, nil
}

// List returns programs matching filter with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.Program, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}
	return items, total, nil
}

// Update replaces the editable attributes of a program. Workflow attributes
// are never touched here.
func (s *Service) Update(ctx context.Context, id string, in Input, userID string) (*domain.Program, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &domain.Program{ID: id}
	in.apply(p)

	if err := s.repo.Update(ctx, p, EditableStatuses); err != nil {
		return nil, fmt.Errorf("update program: %w", err)
	}

	s.record(ctx, "program.updated", id, userID, nil)
	return p, nil
}

// Delete removes a program that has not entered review.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, EditableStatuses); err != nil {
		return fmt.Errorf("delete program: %w", err)
	}

	s.record(ctx, "program.deleted", id, userID, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action, id, userID string, details map[string]any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.ActivityEntry{
		ActorID:      userID,
		Action:       action,
		ResourceKind: string(domain.KindProgram),
		ResourceID:   id,
		Details:      details,
	})
}
