package diagnosis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// FAQSource looks up question/answer entries relevant to a species and a
// set of symptom keywords, sorted by relevance, possibly empty.
type FAQSource interface {
	Lookup(ctx context.Context, species model.Species, keywords []string) ([]model.FAQEntry, error)
}

// HistorySource returns a pet's most recent diagnosis records
type HistorySource interface {
	RecentByPet(ctx context.Context, petID string, limit int) ([]model.DiagnosisRecord, error)
}

// ContextAssembler gathers FAQ entries and visit history into a bounded
// text block appended to the medical stage's prompt. A failing or empty
// lookup source yields an empty string and never blocks the pipeline.
type ContextAssembler struct {
	faq     FAQSource
	history HistorySource
	maxLen  int
	logger  *zap.Logger
}

// NewContextAssembler creates an assembler. faq and history may be nil.
func NewContextAssembler(faq FAQSource, history HistorySource, logger *zap.Logger) *ContextAssembler {
	return &ContextAssembler{
		faq:     faq,
		history: history,
		maxLen:  2000,
		logger:  logger,
	}
}

// Assemble builds the auxiliary context for one diagnosis run
func (a *ContextAssembler) Assemble(ctx context.Context, pet model.PetProfile, keywords []string) string {
	var b strings.Builder

	if a.faq != nil {
		entries, err := a.faq.Lookup(ctx, pet.Species, keywords)
		if err != nil {
			a.logger.Warn("FAQ lookup failed, continuing without context",
				zap.String("pet_id", pet.ID),
				zap.Error(err),
			)
		} else if len(entries) > 0 {
			b.WriteString("자주 묻는 질문:\n")
			for _, e := range entries {
				fmt.Fprintf(&b, "Q: %s\nA: %s\n", e.Question, e.Answer)
			}
		}
	}

	if a.history != nil && pet.ID != "" {
		records, err := a.history.RecentByPet(ctx, pet.ID, 3)
		if err != nil {
			a.logger.Warn("visit history lookup failed, continuing without context",
				zap.String("pet_id", pet.ID),
				zap.Error(err),
			)
		} else if len(records) > 0 {
			b.WriteString("최근 진단 이력:\n")
			for _, r := range records {
				fmt.Fprintf(&b, "- %s: %s (응급도 %d)\n",
					r.CreatedAt.Format("2006-01-02"), r.Summary.DiagnosisName, triageScoreOf(r))
			}
		}
	}

	return truncateRunes(b.String(), a.maxLen)
}

func triageScoreOf(r model.DiagnosisRecord) int {
	if r.Triage == nil {
		return 0
	}
	return r.Triage.Score
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
