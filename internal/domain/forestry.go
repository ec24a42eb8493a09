package domain

import "time"

// ForestryScheme is the social-forestry licence scheme.
type ForestryScheme string

// Social-forestry schemes.
const (
	SchemeHutanDesa           ForestryScheme = "HD"
	SchemeHutanKemasyarakatan ForestryScheme = "HKM"
	SchemeHutanTanamanRakyat  ForestryScheme = "HTR"
	SchemeKemitraanKehutanan  ForestryScheme = "KK"
	SchemeHutanAdat           ForestryScheme = "HA"
)

// IsValid checks if the scheme is known.
func (s ForestryScheme) IsValid() bool {
	switch s {
	case SchemeHutanDesa, SchemeHutanKemasyarakatan, SchemeHutanTanamanRakyat,
		SchemeKemitraanKehutanan, SchemeHutanAdat:
		return true
	}
	return false
}

// SocialForestry is a perhutanan sosial licence record.
// LicenseNumber (nomor_sk) is the business key used by imports.
type SocialForestry struct {
	ID            string         `json:"id"`
	LicenseNumber string         `json:"nomor_sk"`
	LicenseDate   *time.Time     `json:"tanggal_sk"`
	GroupName     string         `json:"nama_kelompok"`
	Scheme        ForestryScheme `json:"skema"`
	Province      string         `json:"provinsi"`
	Regency       string         `json:"kabupaten"`
	Village       string         `json:"desa"`
	AreaHa        float64        `json:"luas_ha"`
	Households    int            `json:"jumlah_kk"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
