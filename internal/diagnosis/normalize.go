package diagnosis

import (
	"strings"
	"time"

	"github.com/ksy070822/petmily-backend/pkg/model"
)

// Sentinel values substituted for absent input fields. Later stages may
// rely on every field being present; normalization never fails.
const (
	PlaceholderName   = "이름 없는 반려동물"
	NoSymptomSentinel = "증상 정보 없음"
	UnknownSentinel   = "unknown"
)

// NormalizePet canonicalizes a pet record of unknown completeness into a
// fully-populated profile. Applying it twice is a no-op.
func NormalizePet(pet model.PetProfile) model.PetProfile {
	if strings.TrimSpace(pet.Name) == "" {
		pet.Name = PlaceholderName
	}
	if !model.ValidSpecies(pet.Species) {
		pet.Species = model.SpeciesDog
	}
	if strings.TrimSpace(pet.Breed) == "" {
		pet.Breed = UnknownSentinel
	}
	if strings.TrimSpace(pet.Age) == "" {
		pet.Age = UnknownSentinel
	}
	if strings.TrimSpace(pet.Weight) == "" {
		pet.Weight = UnknownSentinel
	}
	switch pet.Sex {
	case model.SexMale, model.SexFemale, model.SexUnknown:
	default:
		pet.Sex = model.SexUnknown
	}
	return pet
}

// NormalizeReport canonicalizes a symptom report. A missing description is
// replaced by an explicit sentinel rather than failing the pipeline.
func NormalizeReport(report model.SymptomReport) model.SymptomReport {
	report.Description = strings.TrimSpace(report.Description)
	if report.Description == "" {
		report.Description = NoSymptomSentinel
	}
	if report.SymptomTags == nil {
		report.SymptomTags = []string{}
	}
	if report.ReportedAt.IsZero() {
		report.ReportedAt = time.Now()
	}
	return report
}
