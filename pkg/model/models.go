package model

import (
	"encoding/json"
	"time"
)

// Species represents the supported pet species
type Species string

const (
	SpeciesDog      Species = "dog"
	SpeciesCat      Species = "cat"
	SpeciesRabbit   Species = "rabbit"
	SpeciesHamster  Species = "hamster"
	SpeciesBird     Species = "bird"
	SpeciesHedgehog Species = "hedgehog"
	SpeciesReptile  Species = "reptile"
	SpeciesOther    Species = "other"
)

// ValidSpecies reports whether s is one of the supported species values
func ValidSpecies(s Species) bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesRabbit, SpeciesHamster,
		SpeciesBird, SpeciesHedgehog, SpeciesReptile, SpeciesOther:
		return true
	}
	return false
}

// Sex represents a pet's sex
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// PetProfile represents a registered pet owned by a guardian account.
// Profiles are never hard-deleted; archiving sets ArchivedAt.
type PetProfile struct {
	ID         string     `json:"id"`
	GuardianID string     `json:"guardian_id"`
	Name       string     `json:"name"`
	Species    Species    `json:"species"`
	Breed      string     `json:"breed"`
	Age        string     `json:"age"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Weight     string     `json:"weight"`
	Sex        Sex        `json:"sex"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// SymptomReport is the input of one diagnosis run. It is not persisted on
// its own; the resulting DiagnosisRecord embeds it.
type SymptomReport struct {
	Description    string    `json:"description"`
	SymptomTags    []string  `json:"symptom_tags,omitempty"`
	ImageURLs      []string  `json:"image_urls,omitempty"`
	DepartmentHint string    `json:"department_hint,omitempty"`
	ReportedAt     time.Time `json:"reported_at"`
}

// AgentRole identifies one stage of the diagnosis pipeline
type AgentRole string

const (
	RoleCS          AgentRole = "cs"
	RoleInformation AgentRole = "information"
	RoleMedical     AgentRole = "medical"
	RoleTriage      AgentRole = "triage"
	RoleOps         AgentRole = "ops"
	RoleCare        AgentRole = "care"
)

// AgentResult is the output of one pipeline stage. Created once by its
// agent and read-only afterwards.
type AgentResult struct {
	Role           AgentRole       `json:"role"`
	StructuredJSON json.RawMessage `json:"structured_json"`
	Message        string          `json:"message"`
	FallbackUsed   bool            `json:"fallback_used"`
	Timestamp      time.Time       `json:"timestamp"`
}

// TriageLevel is the urgency label derived from the triage score
type TriageLevel string

const (
	TriageNormal    TriageLevel = "normal"
	TriageModerate  TriageLevel = "moderate"
	TriageUrgent    TriageLevel = "urgent"
	TriageEmergency TriageLevel = "emergency"
)

// HealthFlags summarizes a pet's derived condition for UI display.
// EnergyLevel is inversely related to severity: lower means more concerning.
type HealthFlags struct {
	EarIssue       bool    `json:"ear_issue"`
	DigestionIssue bool    `json:"digestion_issue"`
	SkinIssue      bool    `json:"skin_issue"`
	Fever          bool    `json:"fever"`
	EnergyLevel    float64 `json:"energy_level"`
}

// TriageAssessment is the urgency classification of one diagnosis run.
// Score and Level are monotonically consistent: a higher score never maps
// to a less urgent level.
type TriageAssessment struct {
	Score             int         `json:"score"`
	Level             TriageLevel `json:"level"`
	RecommendedWindow string      `json:"recommended_window"`
	EmergencySummary  string      `json:"emergency_summary,omitempty"`
	HealthFlags       HealthFlags `json:"health_flags"`
}

// SummarySheet is the owner-facing summary of a diagnosis
type SummarySheet struct {
	DiagnosisName        string   `json:"diagnosis_name"`
	Probability          int      `json:"probability"`
	ImmediateHomeActions []string `json:"immediate_home_actions"`
	NeedHospitalVisit    bool     `json:"need_hospital_visit"`
	HospitalVisitTiming  string   `json:"hospital_visit_timing"`
}

// PrevisitPacket is the condensed hand-off prepared for a clinic
type PrevisitPacket struct {
	Title          string          `json:"packet_title"`
	Text           string          `json:"packet_text"`
	StructuredJSON json.RawMessage `json:"structured_json"`
	PDFPath        string          `json:"pdf_path,omitempty"`
}

// DiagnosisRecord is the final aggregate of a successful pipeline run.
// Immutable after creation except for the share flags.
type DiagnosisRecord struct {
	ID               string            `json:"id"`
	PetID            string            `json:"pet_id"`
	GuardianID       string            `json:"guardian_id"`
	Report           SymptomReport     `json:"report"`
	AgentResults     []AgentResult     `json:"agent_results"`
	Triage           *TriageAssessment `json:"triage,omitempty"`
	Summary          SummarySheet      `json:"summary"`
	Packet           PrevisitPacket    `json:"packet"`
	SharedToClinic   bool              `json:"shared_to_clinic"`
	SharedToGuardian bool              `json:"shared_to_guardian"`
	CreatedAt        time.Time         `json:"created_at"`
}

// DailyCareLog holds per-pet, per-day care counters. One row per
// (pet, date); writes are upserts.
type DailyCareLog struct {
	ID           string    `json:"id"`
	PetID        string    `json:"pet_id"`
	Date         time.Time `json:"date"`
	Feedings     int       `json:"feedings"`
	WaterIntakes int       `json:"water_intakes"`
	Walks        int       `json:"walks"`
	BowelMoves   int       `json:"bowel_moves"`
	Note         string    `json:"note,omitempty"`
	WeightSample *float64  `json:"weight_sample,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FAQEntry is a species-tagged question/answer pair used to build the
// medical agent's auxiliary context
type FAQEntry struct {
	ID       string  `json:"id"`
	Species  Species `json:"species"`
	Keywords string  `json:"keywords"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
}

// Clinic represents a veterinary clinic tenant
type Clinic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// NearbyClinic is a clinic plus its distance from a query point
type NearbyClinic struct {
	Clinic
	DistanceKm float64 `json:"distance_km"`
}

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking represents a clinic visit reservation
type Booking struct {
	ID          string        `json:"id"`
	PetID       string        `json:"pet_id"`
	GuardianID  string        `json:"guardian_id"`
	ClinicID    string        `json:"clinic_id"`
	DiagnosisID *string       `json:"diagnosis_id,omitempty"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      BookingStatus `json:"status"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
