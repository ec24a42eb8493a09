package workflow

import (
	"strings"

	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Definition binds a resource kind to its capabilities and completeness rules.
type Definition struct {
	Kind             domain.ResourceKind
	ViewCapability   access.Capability
	SubmitCapability access.Capability
	ReviewCapability access.Capability
	// Completeness returns the names of the fields that block submission,
	// in a stable order. An empty result means the resource is complete.
	Completeness func(fields map[string]string) []string
}

var definitions = map[domain.ResourceKind]Definition{
	domain.KindProgram: {
		Kind:             domain.KindProgram,
		ViewCapability:   access.ProgramView,
		SubmitCapability: access.ProgramSubmit,
		ReviewCapability: access.ProgramReview,
		Completeness:     programCompleteness,
	},
	domain.KindCarbonProject: {
		Kind:             domain.KindCarbonProject,
		ViewCapability:   access.CarbonProjectView,
		SubmitCapability: access.CarbonProjectSubmit,
		ReviewCapability: access.CarbonProjectReview,
		Completeness:     carbonProjectCompleteness,
	},
}

// DefinitionFor returns the definition of kind.
func DefinitionFor(kind domain.ResourceKind) (Definition, bool) {
	d, ok := definitions[kind]
	return d, ok
}

// Field names used by the completeness rules. They match the JSON names of
// the resources.
const (
	FieldProgramName     = "nama_program"
	FieldProgramCategory = "kategori_program"
	FieldProgramType     = "jenis_program"
	FieldForestCategory  = "kategori_hutan"
	FieldCarbonProjectID = "carbon_project_id"

	FieldProjectCode      = "kode_project"
	FieldProjectName      = "nama_project"
	FieldCarbonStandard   = "standar_karbon"
	FieldMethodology      = "metodologi"
	FieldSocialForestryID = "perhutanan_sosial_id"
)

func programCompleteness(fields map[string]string) []string {
	missing := missingFields(fields, FieldProgramName, FieldProgramCategory, FieldProgramType, FieldCarbonProjectID)
	if fields[FieldProgramType] == string(domain.ProgramTypeKarbon) && blank(fields[FieldForestCategory]) {
		missing = append(missing, FieldForestCategory)
	}
	return missing
}

func carbonProjectCompleteness(fields map[string]string) []string {
	missing := missingFields(fields, FieldProjectCode, FieldProjectName, FieldCarbonStandard, FieldSocialForestryID)
	if fields[FieldCarbonStandard] == string(domain.CarbonStandardVCS) && blank(fields[FieldMethodology]) {
		missing = append(missing, FieldMethodology)
	}
	return missing
}

func missingFields(fields map[string]string, required ...string) []string {
	var missing []string
	for _, name := range required {
		if blank(fields[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
