package domain

import "time"

// ProgramType is the jenis_program of a program.
type ProgramType string

// Program types.
const (
	ProgramTypeKarbon       ProgramType = "KARBON"
	ProgramTypePemberdayaan ProgramType = "PEMBERDAYAAN_EKONOMI"
	ProgramTypeKonservasi   ProgramType = "KONSERVASI"
	ProgramTypeLainnya      ProgramType = "LAINNYA"
)

// IsValid checks if the program type is known.
func (t ProgramType) IsValid() bool {
	switch t {
	case ProgramTypeKarbon, ProgramTypePemberdayaan, ProgramTypeKonservasi, ProgramTypeLainnya:
		return true
	}
	return false
}

// ForestCategory is the kategori_hutan of a carbon program.
type ForestCategory string

// Forest categories.
const (
	ForestCategoryMineral ForestCategory = "MINERAL"
	ForestCategoryGambut  ForestCategory = "GAMBUT"
)

// Program is a foundation program, optionally tied to a carbon project.
type Program struct {
	ID              string          `json:"id"`
	Name            string          `json:"nama_program"`
	Category        string          `json:"kategori_program"`
	Type            ProgramType     `json:"jenis_program"`
	ForestCategory  *ForestCategory `json:"kategori_hutan"`
	CarbonProjectID *string         `json:"carbon_project_id"`
	Description     string          `json:"deskripsi"`
	TargetAreaHa    *float64        `json:"target_luas_ha"`
	StartDate       *time.Time      `json:"tanggal_mulai"`
	EndDate         *time.Time      `json:"tanggal_selesai"`
	WorkflowAudit
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
