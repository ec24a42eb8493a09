package domain

import "time"

// CarbonStandard is the certification standard of a carbon project.
type CarbonStandard string

// Carbon standards.
const (
	CarbonStandardVCS          CarbonStandard = "VCS"
	CarbonStandardGoldStandard CarbonStandard = "GOLD_STANDARD"
	CarbonStandardPlanVivo     CarbonStandard = "PLAN_VIVO"
	CarbonStandardSRN          CarbonStandard = "SRN_PPI"
)

// IsValid checks if the standard is known.
func (s CarbonStandard) IsValid() bool {
	switch s {
	case CarbonStandardVCS, CarbonStandardGoldStandard, CarbonStandardPlanVivo, CarbonStandardSRN:
		return true
	}
	return false
}

// CarbonProject is a carbon-credit project hosted on a social-forestry area.
type CarbonProject struct {
	ID               string          `json:"id"`
	Code             string          `json:"kode_project"`
	Name             string          `json:"nama_project"`
	Standard         *CarbonStandard `json:"standar_karbon"`
	Methodology      *string         `json:"metodologi"`
	SocialForestryID *string         `json:"perhutanan_sosial_id"`
	AreaHa           *float64        `json:"luas_total_ha"`
	EstimatedTCO2e   *float64        `json:"estimasi_penyerapan_tco2e"`
	Province         string          `json:"provinsi"`
	Regency          string          `json:"kabupaten"`
	WorkflowAudit
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
