package diagnosis

import (
	"testing"

	"github.com/ksy070822/petmily-backend/pkg/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLevelForScore_Partition(t *testing.T) {
	assert.Equal(t, model.TriageNormal, LevelForScore(1))
	assert.Equal(t, model.TriageModerate, LevelForScore(2))
	assert.Equal(t, model.TriageModerate, LevelForScore(3))
	assert.Equal(t, model.TriageUrgent, LevelForScore(4))
	assert.Equal(t, model.TriageEmergency, LevelForScore(5))
}

func TestLevelForScore_ClampsOutOfRange(t *testing.T) {
	assert.Equal(t, model.TriageNormal, LevelForScore(0))
	assert.Equal(t, model.TriageNormal, LevelForScore(-3))
	assert.Equal(t, model.TriageEmergency, LevelForScore(9))
}

func TestScoreFromMedical_RiskBaseScores(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	tests := []struct {
		risk  string
		score int
	}{
		{RiskLow, 1},
		{RiskModerate, 3},
		{RiskHigh, 4},
		{RiskEmergency, 5},
	}

	for _, tt := range tests {
		assessment := scorer.ScoreFromMedical(&MedicalOutput{RiskLevel: tt.risk})
		assert.Equal(t, tt.score, assessment.Score, "risk %s", tt.risk)
		assert.Equal(t, LevelForScore(tt.score), assessment.Level)
	}
}

func TestScoreFromMedical_NilMedicalDefaultsToNormal(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.ScoreFromMedical(nil)

	assert.Equal(t, 1, assessment.Score)
	assert.Equal(t, model.TriageNormal, assessment.Level)
}

func TestScoreFromMedical_HospitalVisitFloorsScore(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.ScoreFromMedical(&MedicalOutput{
		RiskLevel:         RiskLow,
		NeedHospitalVisit: true,
	})

	assert.GreaterOrEqual(t, assessment.Score, 3)
}

func TestScoreFromMedical_ExplicitScoreCappedByRisk(t *testing.T) {
	scorer := NewScorer(zap.NewNop())
	proposed := 5

	assessment := scorer.ScoreFromMedical(&MedicalOutput{
		RiskLevel:   RiskLow,
		TriageScore: &proposed,
	})

	// A 4+ score needs high or emergency medical risk behind it
	assert.Equal(t, 3, assessment.Score)
}

func TestReconcile_NilTriageFallsBackToMedical(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.Reconcile(&MedicalOutput{RiskLevel: RiskHigh}, nil)

	assert.Equal(t, 4, assessment.Score)
	assert.Equal(t, model.TriageUrgent, assessment.Level)
}

func TestReconcile_BoundsModelProposedScore(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.Reconcile(
		&MedicalOutput{RiskLevel: RiskModerate},
		&TriageOutput{TriageScore: 5},
	)

	assert.Equal(t, 3, assessment.Score)
	assert.Equal(t, model.TriageModerate, assessment.Level)
}

func TestReconcile_HighRiskAllowsHighScore(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.Reconcile(
		&MedicalOutput{RiskLevel: RiskEmergency},
		&TriageOutput{TriageScore: 5},
	)

	assert.Equal(t, 5, assessment.Score)
	assert.Equal(t, model.TriageEmergency, assessment.Level)
	assert.NotEmpty(t, assessment.EmergencySummary)
}

func TestReconcile_PrefersTriageHealthFlags(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.Reconcile(
		&MedicalOutput{
			RiskLevel:   RiskModerate,
			HealthFlags: &model.HealthFlags{DigestionIssue: false},
		},
		&TriageOutput{
			TriageScore: 3,
			HealthFlags: model.HealthFlags{DigestionIssue: true, EnergyLevel: 0.4},
		},
	)

	assert.True(t, assessment.HealthFlags.DigestionIssue)
	assert.InDelta(t, 0.4, assessment.HealthFlags.EnergyLevel, 0.001)
}

func TestReconcile_FillsEnergyLevelWhenMissing(t *testing.T) {
	scorer := NewScorer(zap.NewNop())

	assessment := scorer.Reconcile(&MedicalOutput{RiskLevel: RiskLow}, nil)

	assert.Greater(t, assessment.HealthFlags.EnergyLevel, 0.0)
}

func TestProperty_ScoreLevelMappingIsMonotonic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	levelRank := map[model.TriageLevel]int{
		model.TriageNormal:    0,
		model.TriageModerate:  1,
		model.TriageUrgent:    2,
		model.TriageEmergency: 3,
	}

	properties.Property("a higher score never maps to a less urgent level", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			return levelRank[LevelForScore(a)] <= levelRank[LevelForScore(b)]
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 5),
	))

	properties.Property("energy level is exactly the score complement with a 0.1 floor", prop.ForAll(
		func(score int) bool {
			want := 1 - float64(score)/5
			if want < 0.1 {
				want = 0.1
			}
			return energyForScore(score) == want
		},
		gen.IntRange(1, 5),
	))

	properties.Property("assessment score always lands in 1..5", prop.ForAll(
		func(score int, risk string) bool {
			scorer := NewScorer(zap.NewNop())
			assessment := scorer.Reconcile(
				&MedicalOutput{RiskLevel: risk},
				&TriageOutput{TriageScore: score},
			)
			return assessment.Score >= 1 && assessment.Score <= 5 &&
				assessment.Level == LevelForScore(assessment.Score)
		},
		gen.IntRange(-10, 10),
		gen.OneConstOf(RiskLow, RiskModerate, RiskHigh, RiskEmergency, "weird"),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}
