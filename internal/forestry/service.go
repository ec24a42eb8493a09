// Package forestry manages perhutanan sosial (social-forestry) licences and
// their bulk import.
package forestry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lestari-foundation/forestgate/internal/domain"
)

// MaxImportRows bounds a single import request.
const MaxImportRows = 5000

// Forestry errors.
var (
	ErrLicenseNotFound  = errors.New("social forestry licence not found")
	ErrDuplicateLicense = errors.New("nomor_sk already exists")
	ErrLicenseInUse     = errors.New("licence is referenced by carbon projects")
	ErrEmptyImport      = errors.New("import contains no rows")
	ErrTooManyRows      = errors.New("import exceeds the row limit")
)

// Input holds the attributes of a licence. It doubles as the create/update
// request body and as one import row.
type Input struct {
	LicenseNumber string     `json:"nomor_sk" validate:"required,max=100"`
	LicenseDate   *time.Time `json:"tanggal_sk"`
	GroupName     string     `json:"nama_kelompok" validate:"required,max=255"`
	Scheme        string     `json:"skema" validate:"required,oneof=HD HKM HTR KK HA"`
	Province      string     `json:"provinsi" validate:"required,max=100"`
	Regency       string     `json:"kabupaten" validate:"max=100"`
	Village       string     `json:"desa" validate:"max=100"`
	AreaHa        float64    `json:"luas_ha" validate:"gt=0"`
	Households    int        `json:"jumlah_kk" validate:"gte=0"`
}

func (in Input) toDomain() *domain.SocialForestry {
	return &domain.SocialForestry{
		LicenseNumber: strings.TrimSpace(in.LicenseNumber),
		LicenseDate:   in.LicenseDate,
		GroupName:     strings.TrimSpace(in.GroupName),
		Scheme:        domain.ForestryScheme(in.Scheme),
		Province:      strings.TrimSpace(in.Province),
		Regency:       strings.TrimSpace(in.Regency),
		Village:       strings.TrimSpace(in.Village),
		AreaHa:        in.AreaHa,
		Households:    in.Households,
	}
}

// ListFilter narrows a licence listing.
type ListFilter struct {
	Province string
	Scheme   domain.ForestryScheme
	Search   string
	Limit    int
	Offset   int
}

// Repository defines the interface for licence storage.
type Repository interface {
	Create(ctx context.Context, sf *domain.SocialForestry) error
	GetByID(ctx context.Context, id string) (*domain.SocialForestry, error)
	List(ctx context.Context, filter ListFilter) ([]domain.SocialForestry, int, error)
	Update(ctx context.Context, sf *domain.SocialForestry) error
	Delete(ctx context.Context, id string) error
	// Upsert writes all items keyed by nomor_sk in one transaction and
	// reports, per item, whether it was inserted (true) or updated (false).
	Upsert(ctx context.Context, items []*domain.SocialForestry) ([]bool, error)
}

// ActivityRecorder receives an entry per mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// RowError describes why an import row was not written.
type RowError struct {
	Row           int    `json:"row"`
	LicenseNumber string `json:"nomor_sk,omitempty"`
	Message       string `json:"message"`
}

// ImportReport summarises an import. Rows are numbered from 1.
type ImportReport struct {
	Received   int        `json:"received"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Duplicates int        `json:"duplicates"`
	Failed     int        `json:"failed"`
	Errors     []RowError `json:"errors"`
}

// Service implements licence business logic.
type Service struct {
	repo     Repository
	activity ActivityRecorder
	validate *validator.Validate
}

// NewService creates a new forestry service.
func NewService(repo Repository, activity ActivityRecorder) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{repo: repo, activity: activity, validate: v}
}

// Validator returns the validator used for licence input, with JSON field names.
func (s *Service) Validator() *validator.Validate {
	return s.validate
}

// Create stores a new licence.
func (s *Service) Create(ctx context.Context, in Input, userID string) (*domain.SocialForestry, error) {
	sf := in.toDomain()
	sf.CreatedBy = userID

	if err := s.repo.Create(ctx, sf); err != nil {
		return nil, fmt.Errorf("create licence: %w", err)
	}

	s.record(ctx, "social_forestry.created", sf.ID, userID, map[string]any{"nomor_sk": sf.LicenseNumber})
	return sf, nil
}

// Get returns a licence by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.SocialForestry, error) {
	sf, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get licence: %w", err)
	}
	return sf, nil
}

// List returns licences matching filter with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.SocialForestry, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list licences: %w", err)
	}
	return items, total, nil
}

// Update replaces the attributes of a licence.
func (s *Service) Update(ctx context.Context, id string, in Input, userID string) (*domain.SocialForestry, error) {
	sf := in.toDomain()
	sf.ID = id

	if err := s.repo.Update(ctx, sf); err != nil {
		return nil, fmt.Errorf("update licence: %w", err)
	}

	s.record(ctx, "social_forestry.updated", id, userID, nil)
	return sf, nil
}

// Delete removes a licence.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete licence: %w", err)
	}

	s.record(ctx, "social_forestry.deleted", id, userID, nil)
	return nil
}

// Import upserts rows by nomor_sk. Invalid rows are reported and skipped;
// when a batch repeats a nomor_sk the last valid row wins and the earlier
// ones count as duplicates. Valid rows are written atomically.
func (s *Service) Import(ctx context.Context, rows []Input, userID string) (*ImportReport, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}
	if len(rows) > MaxImportRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(rows), MaxImportRows)
	}

	report := &ImportReport{Received: len(rows), Errors: make([]RowError, 0)}

	position := make(map[string]int, len(rows))
	items := make([]*domain.SocialForestry, 0, len(rows))
	for i, row := range rows {
		if err := s.validate.Struct(row); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, RowError{
				Row:           i + 1,
				LicenseNumber: strings.TrimSpace(row.LicenseNumber),
				Message:       describe(err),
			})
			continue
		}

		sf := row.toDomain()
		sf.CreatedBy = userID
		if at, seen := position[sf.LicenseNumber]; seen {
			items[at] = sf
			report.Duplicates++
			continue
		}
		position[sf.LicenseNumber] = len(items)
		items = append(items, sf)
	}

	if len(items) > 0 {
		inserted, err := s.repo.Upsert(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("import licences: %w", err)
		}
		for _, ins := range inserted {
			if ins {
				report.Inserted++
			} else {
				report.Updated++
			}
		}
	}

	s.record(ctx, "social_forestry.imported", "import", userID, map[string]any{
		"received":   report.Received,
		"inserted":   report.Inserted,
		"updated":    report.Updated,
		"duplicates": report.Duplicates,
		"failed":     report.Failed,
	})
	return report, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", e.Field(), e.Tag(), e.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field(), e.Tag()))
	}
	return strings.Join(parts, "; ")
}

func (s *Service) record(ctx context.Context, action, id, userID string, details map[string]any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.ActivityEntry{
		ActorID:      userID,
		Action:       action,
		ResourceKind: "social_forestry",
		ResourceID:   id,
		Details:      details,
	})
}
