package pdf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ksy070822/petmily-backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func samplePacketData() *PacketData {
	weight := 3.5
	return &PacketData{
		Pet: model.PetProfile{
			ID:      "pet-1",
			Name:    "Kongi",
			Species: model.SpeciesDog,
			Breed:   "Maltese",
			Age:     "3y",
			Weight:  "3.5kg",
			Sex:     model.SexFemale,
		},
		Record: model.DiagnosisRecord{
			ID: "diag-1",
			Report: model.SymptomReport{
				Description: "Diarrhea since yesterday",
				SymptomTags: []string{"diarrhea"},
				ReportedAt:  time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
			},
			Triage: &model.TriageAssessment{
				Score:             3,
				Level:             model.TriageModerate,
				RecommendedWindow: "visit within 2-3 days",
			},
			Summary: model.SummarySheet{
				DiagnosisName:        "Acute gastroenteritis",
				Probability:          55,
				ImmediateHomeActions: []string{"Withhold food for 12h"},
				NeedHospitalVisit:    true,
				HospitalVisitTiming:  "2-3 days",
			},
			Packet: model.PrevisitPacket{
				Title:          "Previsit summary for Kongi",
				Text:           "Digestive symptoms reported by the guardian.",
				StructuredJSON: json.RawMessage(`{"triage_score": 3}`),
			},
			CreatedAt: time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
		},
		CareLogs: []model.DailyCareLog{
			{
				Date:         time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC),
				Feedings:     2,
				WaterIntakes: 4,
				Walks:        1,
				BowelMoves:   3,
				WeightSample: &weight,
				Note:         "loose stool in the evening",
			},
		},
	}
}

func TestGenerate_ProducesValidPDF(t *testing.T) {
	g := NewPacketGenerator(zap.NewNop())

	out, err := g.Generate(samplePacketData())

	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestGenerate_ToleratesSparseRecord(t *testing.T) {
	g := NewPacketGenerator(zap.NewNop())

	out, err := g.Generate(&PacketData{
		Pet:    model.PetProfile{Name: "Kongi", Species: model.SpeciesDog},
		Record: model.DiagnosisRecord{ID: "diag-2"},
	})

	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestGenerate_DefaultsTitleWhenMissing(t *testing.T) {
	g := NewPacketGenerator(zap.NewNop())

	data := samplePacketData()
	data.Record.Packet.Title = ""

	out, err := g.Generate(data)

	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
