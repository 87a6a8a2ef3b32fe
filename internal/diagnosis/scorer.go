package diagnosis

import (
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// Scorer applies the deterministic triage policy. Score 1 is routine,
// 5 is life-threatening. The fixed score-to-level partition:
//
//	1   → normal
//	2-3 → moderate
//	4   → urgent
//	5   → emergency
//
// The partition is monotonic: a higher score never maps to a less urgent
// level.
type Scorer struct {
	logger *zap.Logger
}

// NewScorer creates a triage scorer
func NewScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// LevelForScore maps a 1-5 triage score to its urgency label
func LevelForScore(score int) model.TriageLevel {
	switch clampScore(score) {
	case 1:
		return model.TriageNormal
	case 2, 3:
		return model.TriageModerate
	case 4:
		return model.TriageUrgent
	default:
		return model.TriageEmergency
	}
}

// actionWindowForScore maps a score to the recommended action window
func actionWindowForScore(score int) string {
	switch clampScore(score) {
	case 1:
		return "경과 관찰"
	case 2:
		return "1주일 내 내원 권장"
	case 3:
		return "2-3일 내 내원 권장"
	case 4:
		return "24시간 내 내원"
	default:
		return "즉시 응급 내원"
	}
}

// riskBaseScore maps the medical stage's risk level to a base score.
// The mapping is monotonic over low < moderate < high < emergency.
func riskBaseScore(risk string) int {
	switch risk {
	case RiskLow:
		return 1
	case RiskModerate:
		return 3
	case RiskHigh:
		return 4
	case RiskEmergency:
		return 5
	}
	return 2
}

// energyForScore derives the energy-level health flag from the score.
// Score and energy are complementary, clamped away from zero.
func energyForScore(score int) float64 {
	e := 1 - float64(score)/5
	if e < 0.1 {
		return 0.1
	}
	return e
}

// ScoreFromMedical computes a triage assessment from the medical stage's
// output alone. Used by the rule-based triage strategy and whenever the
// model-backed triage stage produced nothing usable.
func (s *Scorer) ScoreFromMedical(med *MedicalOutput) model.TriageAssessment {
	if med == nil {
		med = &MedicalOutput{RiskLevel: RiskLow}
	}

	score := riskBaseScore(med.RiskLevel)
	if med.TriageScore != nil {
		score = s.boundScore(*med.TriageScore, med)
	}
	// Hospital visit flagged without an explicit score reads as at least
	// moderate, never routine.
	if med.NeedHospitalVisit && score < 3 {
		score = 3
	}

	return s.assess(score, med, nil)
}

// Reconcile merges a model-produced triage output with the deterministic
// policy, enforcing consistency with the medical stage's risk level.
func (s *Scorer) Reconcile(med *MedicalOutput, triage *TriageOutput) model.TriageAssessment {
	if triage == nil {
		return s.ScoreFromMedical(med)
	}

	score := s.boundScore(triage.TriageScore, med)
	if med != nil && med.NeedHospitalVisit && score < 3 {
		score = 3
	}

	return s.assess(score, med, triage)
}

// boundScore clamps a proposed score to 1..5 and caps it at 3 unless the
// medical stage signaled high or emergency risk. Keeps the score
// monotonically consistent with the medical assessment.
func (s *Scorer) boundScore(score int, med *MedicalOutput) int {
	score = clampScore(score)
	if score >= 4 && med != nil && riskRank(med.RiskLevel) < riskRank(RiskHigh) {
		s.logger.Warn("triage score capped: medical risk does not support it",
			zap.Int("proposed_score", score),
			zap.String("risk_level", med.RiskLevel),
		)
		score = 3
	}
	return score
}

func (s *Scorer) assess(score int, med *MedicalOutput, triage *TriageOutput) model.TriageAssessment {
	var flags model.HealthFlags
	summary := ""
	window := actionWindowForScore(score)

	switch {
	case triage != nil:
		flags = triage.HealthFlags
		summary = triage.EmergencySummary
		if triage.RecommendedActionWindow != "" {
			window = triage.RecommendedActionWindow
		}
	case med != nil && med.HealthFlags != nil:
		flags = *med.HealthFlags
	}

	if flags.EnergyLevel == 0 {
		flags.EnergyLevel = energyForScore(score)
	}

	if summary == "" && score >= 4 {
		summary = "응급 처치가 필요할 수 있는 상태입니다. 즉시 내원을 권장합니다."
	}

	return model.TriageAssessment{
		Score:             score,
		Level:             LevelForScore(score),
		RecommendedWindow: window,
		EmergencySummary:  summary,
		HealthFlags:       flags,
	}
}
