package diagnosis

import (
	"strings"

	"github.com/ksy070822/petmily-backend/pkg/model"
)

// Urgency values used by the CS stage's first-pass assessment
const (
	UrgencyLow       = "low"
	UrgencyModerate  = "moderate"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

// Severity hints produced by the Information stage
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Risk levels produced by the Medical stage, ordered low < moderate <
// high < emergency
const (
	RiskLow       = "low"
	RiskModerate  = "moderate"
	RiskHigh      = "high"
	RiskEmergency = "emergency"
)

// riskRank orders risk levels for monotonicity checks. Unknown values
// rank as moderate.
func riskRank(risk string) int {
	switch risk {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskEmergency:
		return 3
	}
	return 1
}

// CSOutput is the reception stage's structured output: a greeting plus a
// first-pass severity guess from the free-text description. The guess only
// seeds the Information stage's severity hint, never the final triage.
type CSOutput struct {
	Message                string `json:"message"`
	FirstUrgencyAssessment string `json:"first_urgency_assessment"`
}

func (o *CSOutput) normalize() {
	o.FirstUrgencyAssessment = strings.ToLower(strings.TrimSpace(o.FirstUrgencyAssessment))
	switch o.FirstUrgencyAssessment {
	case UrgencyLow, UrgencyModerate, UrgencyHigh, UrgencyEmergency:
	default:
		o.FirstUrgencyAssessment = UrgencyModerate
	}
	if o.Message == "" {
		o.Message = "접수가 완료되었습니다. 증상을 확인하고 있어요."
	}
}

// InfoOutput is the information-desk stage's structured output
type InfoOutput struct {
	SymptomKeywords      []string `json:"symptom_keywords"`
	BodyPartFocus        []string `json:"body_part_focus"`
	SeverityHint         string   `json:"severity_hint"`
	PossibleCategories   []string `json:"possible_categories"`
	NotesForMedicalAgent string   `json:"notes_for_medical_agent"`
}

func (o *InfoOutput) normalize() {
	o.SeverityHint = strings.ToLower(strings.TrimSpace(o.SeverityHint))
	switch o.SeverityHint {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		o.SeverityHint = SeverityLow
	}
	// Never an empty result: fall back to the generic category
	if len(o.SymptomKeywords) == 0 {
		o.SymptomKeywords = []string{"일반 증상"}
	}
	if len(o.PossibleCategories) == 0 {
		o.PossibleCategories = []string{"기타"}
	}
	if o.BodyPartFocus == nil {
		o.BodyPartFocus = []string{}
	}
}

// applySeverityFloor lifts the severity hint according to the CS stage's
// first-pass assessment. An emergency or high reception guess maps
// directly to a high hint and is never downgraded.
func (o *InfoOutput) applySeverityFloor(cs *CSOutput) {
	if cs == nil {
		return
	}
	switch cs.FirstUrgencyAssessment {
	case UrgencyEmergency, UrgencyHigh:
		o.SeverityHint = SeverityHigh
	case UrgencyModerate:
		if o.SeverityHint == SeverityLow {
			o.SeverityHint = SeverityMedium
		}
	}
}

// Disease is one differential with its estimated probability (0-100)
type Disease struct {
	Name        string `json:"name"`
	Probability int    `json:"probability"`
}

// MedicalOutput is the veterinarian stage's structured output. This is the
// heaviest-context stage; it also receives the assembled FAQ/history block.
type MedicalOutput struct {
	PrimaryAssessment   string             `json:"primary_assessment"`
	PossibleDiseases    []Disease          `json:"possible_diseases"`
	RiskLevel           string             `json:"risk_level"`
	NeedHospitalVisit   bool               `json:"need_hospital_visit"`
	HospitalVisitTiming string             `json:"hospital_visit_timing"`
	TriageScore         *int               `json:"triage_score,omitempty"`
	HealthFlags         *model.HealthFlags `json:"health_flags,omitempty"`
}

func (o *MedicalOutput) normalize() {
	o.RiskLevel = strings.ToLower(strings.TrimSpace(o.RiskLevel))
	switch o.RiskLevel {
	case RiskLow, RiskModerate, RiskHigh, RiskEmergency:
	default:
		o.RiskLevel = RiskModerate
	}
	// High or emergency risk always entails a hospital visit. Only high and
	// emergency risk admit a 4+ triage score downstream, so a record can
	// never pair an urgent score with "no visit needed".
	if riskRank(o.RiskLevel) >= riskRank(RiskHigh) {
		o.NeedHospitalVisit = true
	}
	for i := range o.PossibleDiseases {
		if o.PossibleDiseases[i].Probability < 0 {
			o.PossibleDiseases[i].Probability = 0
		}
		if o.PossibleDiseases[i].Probability > 100 {
			o.PossibleDiseases[i].Probability = 100
		}
	}
	if o.PossibleDiseases == nil {
		o.PossibleDiseases = []Disease{}
	}
	if o.TriageScore != nil {
		s := clampScore(*o.TriageScore)
		o.TriageScore = &s
	}
	if o.PrimaryAssessment == "" {
		o.PrimaryAssessment = "증상 정보가 부족하여 일반적인 관찰이 필요합니다."
	}
	if o.HospitalVisitTiming == "" {
		if o.NeedHospitalVisit {
			o.HospitalVisitTiming = "1-2일 내"
		} else {
			o.HospitalVisitTiming = "경과 관찰 후 필요시"
		}
	}
}

// TriageOutput is the emergency-triage stage's structured output
type TriageOutput struct {
	TriageScore             int               `json:"triage_score"`
	TriageLevel             string            `json:"triage_level"`
	RecommendedActionWindow string            `json:"recommended_action_window"`
	EmergencySummary        string            `json:"emergency_summary"`
	HealthFlags             model.HealthFlags `json:"health_flags"`
}

func (o *TriageOutput) normalize() {
	o.TriageScore = clampScore(o.TriageScore)
	o.TriageLevel = string(LevelForScore(o.TriageScore))
	if o.HealthFlags.EnergyLevel < 0 {
		o.HealthFlags.EnergyLevel = 0
	}
	if o.HealthFlags.EnergyLevel > 1 {
		o.HealthFlags.EnergyLevel = 1
	}
}

// MedicalLogEntry merges the clinically relevant fields of all prior
// stages for the clinic-side record
type MedicalLogEntry struct {
	Symptoms          []string  `json:"symptoms"`
	BodyParts         []string  `json:"body_parts"`
	PrimaryAssessment string    `json:"primary_assessment"`
	PossibleDiseases  []Disease `json:"possible_diseases"`
	RiskLevel         string    `json:"risk_level"`
	TriageScore       int       `json:"triage_score"`
}

// PacketDraft is the hospital pre-visit packet as produced by the Ops stage
type PacketDraft struct {
	PacketTitle    string         `json:"packet_title"`
	PacketText     string         `json:"packet_text"`
	StructuredJSON map[string]any `json:"structured_json"`
}

// OpsOutput is the treatment-planning stage's structured output: the
// owner- and clinic-facing artifacts synthesized from all prior stages
type OpsOutput struct {
	MedicalLog             MedicalLogEntry    `json:"medical_log"`
	OwnerDiagnosisSheet    model.SummarySheet `json:"owner_friendly_diagnosis_sheet"`
	HospitalPrevisitPacket PacketDraft        `json:"hospital_previsit_packet"`
}

func (o *OpsOutput) normalize() {
	if o.OwnerDiagnosisSheet.Probability < 0 {
		o.OwnerDiagnosisSheet.Probability = 0
	}
	if o.OwnerDiagnosisSheet.Probability > 100 {
		o.OwnerDiagnosisSheet.Probability = 100
	}
	if o.OwnerDiagnosisSheet.ImmediateHomeActions == nil {
		o.OwnerDiagnosisSheet.ImmediateHomeActions = []string{}
	}
	if o.OwnerDiagnosisSheet.DiagnosisName == "" {
		o.OwnerDiagnosisSheet.DiagnosisName = "일반 증상"
	}
	if o.HospitalPrevisitPacket.PacketTitle == "" {
		o.HospitalPrevisitPacket.PacketTitle = "내원 전 진단 요약"
	}
	if o.MedicalLog.Symptoms == nil {
		o.MedicalLog.Symptoms = []string{}
	}
	if o.MedicalLog.PossibleDiseases == nil {
		o.MedicalLog.PossibleDiseases = []Disease{}
	}
}

// CarePlan is the structured half of the care stage's guidance
type CarePlan struct {
	FeedingGuide    string   `json:"feeding_guide"`
	MedicationNotes string   `json:"medication_notes"`
	Monitoring      []string `json:"monitoring"`
	RecheckWindow   string   `json:"recheck_window"`
}

// CareOutput is the home-care and prescription stage's structured output
type CareOutput struct {
	FullGuide string   `json:"fullGuide"`
	Plan      CarePlan `json:"json"`
}

func (o *CareOutput) normalize() {
	if o.Plan.Monitoring == nil {
		o.Plan.Monitoring = []string{}
	}
	if o.FullGuide == "" {
		o.FullGuide = "증상을 관찰하며 충분한 수분과 휴식을 제공해 주세요."
	}
	if o.Plan.RecheckWindow == "" {
		o.Plan.RecheckWindow = "48시간"
	}
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}
