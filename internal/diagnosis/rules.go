package diagnosis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ksy070822/petmily-backend/pkg/model"
)

// symptomCategory maps body-part keywords in the symptom text to a
// canonical category. Keywords cover the Korean terms guardians actually
// type plus common English fallbacks.
type symptomCategory struct {
	category string
	bodyPart string
	keywords []string
}

var bodyPartLexicon = []symptomCategory{
	{
		category: "소화기 질환",
		bodyPart: "복부/소화기",
		keywords: []string{"설사", "구토", "토했", "토를", "혈변", "변비", "식욕", "먹지 않", "안 먹", "묽은 변", "diarrhea", "vomit", "stool", "appetite"},
	},
	{
		category: "귀 질환",
		bodyPart: "귀",
		keywords: []string{"귀를", "귀에서", "귀가", "머리를 흔", "긁어", "ear"},
	},
	{
		category: "피부 질환",
		bodyPart: "피부",
		keywords: []string{"피부", "발진", "가려워", "긁", "탈모", "털이 빠", "붉은", "딱지", "skin", "itch", "rash"},
	},
	{
		category: "호흡기 질환",
		bodyPart: "호흡기",
		keywords: []string{"기침", "재채기", "콧물", "호흡", "숨을", "숨쉬", "헐떡", "cough", "sneez", "breath"},
	},
}

var emergencyKeywords = []string{"경련", "발작", "의식이 없", "호흡곤란", "숨을 쉬지", "피를 토", "축 늘어", "쓰러졌", "seizure", "collapse", "unconscious"}

var highUrgencyKeywords = []string{"혈변", "피가", "고열", "구토를 반복", "계속 토", "하루 종일", "심하게", "blood", "fever"}

// matchCategories scans the symptom text and tags against the body-part
// lexicon. Returns matched categories, body parts, and the keywords hit.
func matchCategories(report model.SymptomReport) (categories, bodyParts, keywords []string) {
	text := strings.ToLower(report.Description + " " + strings.Join(report.SymptomTags, " "))
	seen := map[string]bool{}
	for _, entry := range bodyPartLexicon {
		for _, kw := range entry.keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				if !seen[entry.category] {
					seen[entry.category] = true
					categories = append(categories, entry.category)
					bodyParts = append(bodyParts, entry.bodyPart)
				}
				keywords = append(keywords, kw)
			}
		}
	}
	return categories, bodyParts, keywords
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// ── CS / reception ─────────────────────────────────────────────

type csRules struct{}

func (csRules) name() string { return "cs-rules" }

func (csRules) run(_ context.Context, in Input) (stageOutput, string, error) {
	urgency := UrgencyLow
	text := in.Report.Description
	switch {
	case containsAny(text, emergencyKeywords):
		urgency = UrgencyEmergency
	case containsAny(text, highUrgencyKeywords):
		urgency = UrgencyHigh
	case text != NoSymptomSentinel:
		urgency = UrgencyModerate
	}

	msg := fmt.Sprintf("%s 보호자님, 접수가 완료되었습니다. 말씀해 주신 증상을 바로 확인하겠습니다.", in.Pet.Name)
	out := &CSOutput{
		Message:                msg,
		FirstUrgencyAssessment: urgency,
	}
	return out, msg, nil
}

// ── Information desk ───────────────────────────────────────────

type infoRules struct{}

func (infoRules) name() string { return "information-rules" }

func (infoRules) run(_ context.Context, in Input) (stageOutput, string, error) {
	categories, bodyParts, keywords := matchCategories(in.Report)

	severity := SeverityLow
	if in.Prior.CS != nil {
		switch in.Prior.CS.FirstUrgencyAssessment {
		case UrgencyEmergency, UrgencyHigh:
			severity = SeverityHigh
		case UrgencyModerate:
			severity = SeverityMedium
		}
	}

	notes := "키워드 기반 분류 결과입니다."
	if len(categories) == 0 {
		notes = "증상 키워드가 분류되지 않아 일반 증상으로 접수합니다."
	}

	out := &InfoOutput{
		SymptomKeywords:      keywords,
		BodyPartFocus:        bodyParts,
		SeverityHint:         severity,
		PossibleCategories:   categories,
		NotesForMedicalAgent: notes,
	}
	out.applySeverityFloor(in.Prior.CS)

	msg := "증상 정보를 정리했습니다."
	return out, msg, nil
}

// ── Medical / veterinarian ─────────────────────────────────────

// categoryDiseases holds heuristic differentials per canonical category
var categoryDiseases = map[string][]Disease{
	"소화기 질환": {{Name: "급성 위장염", Probability: 55}, {Name: "식이 불내성", Probability: 35}, {Name: "기생충 감염", Probability: 20}},
	"귀 질환":   {{Name: "외이염", Probability: 60}, {Name: "귀 진드기", Probability: 30}},
	"피부 질환":  {{Name: "알레르기성 피부염", Probability: 50}, {Name: "세균성 피부염", Probability: 30}},
	"호흡기 질환": {{Name: "상부 호흡기 감염", Probability: 50}, {Name: "켄넬코프", Probability: 25}},
	"기타":     {{Name: "비특이적 증상", Probability: 40}},
}

type medicalRules struct{}

func (medicalRules) name() string { return "medical-rules" }

func (medicalRules) run(_ context.Context, in Input) (stageOutput, string, error) {
	categories := []string{"기타"}
	severity := SeverityLow
	if in.Prior.Info != nil {
		categories = in.Prior.Info.PossibleCategories
		severity = in.Prior.Info.SeverityHint
	}

	var diseases []Disease
	for _, cat := range categories {
		diseases = append(diseases, categoryDiseases[cat]...)
	}
	if len(diseases) == 0 {
		diseases = categoryDiseases["기타"]
	}

	risk := RiskLow
	needVisit := false
	timing := "경과 관찰 후 필요시"
	switch severity {
	case SeverityHigh:
		risk = RiskHigh
		needVisit = true
		timing = "24시간 내"
	case SeverityMedium:
		risk = RiskModerate
		needVisit = true
		timing = "2-3일 내"
	}
	if in.Prior.CS != nil && in.Prior.CS.FirstUrgencyAssessment == UrgencyEmergency {
		risk = RiskEmergency
		timing = "즉시"
	}

	flags := flagsFromCategories(categories, in.Report)

	out := &MedicalOutput{
		PrimaryAssessment:   fmt.Sprintf("%s 소견이 의심됩니다. 규칙 기반 평가 결과이므로 정확한 진단은 내원 진료가 필요합니다.", strings.Join(categories, ", ")),
		PossibleDiseases:    diseases,
		RiskLevel:           risk,
		NeedHospitalVisit:   needVisit,
		HospitalVisitTiming: timing,
		HealthFlags:         &flags,
	}

	msg := "1차 소견을 정리했습니다."
	return out, msg, nil
}

// flagsFromCategories derives boolean health flags from matched
// categories and fever-related wording. EnergyLevel is left at zero here;
// the scorer fills it from the final score when not supplied.
func flagsFromCategories(categories []string, report model.SymptomReport) model.HealthFlags {
	var flags model.HealthFlags
	for _, cat := range categories {
		switch cat {
		case "귀 질환":
			flags.EarIssue = true
		case "소화기 질환":
			flags.DigestionIssue = true
		case "피부 질환":
			flags.SkinIssue = true
		}
	}
	flags.Fever = containsAny(report.Description, []string{"열이", "고열", "뜨거", "fever"})
	return flags
}

// ── Triage ─────────────────────────────────────────────────────

type triageRules struct {
	scorer *Scorer
}

func (triageRules) name() string { return "triage-rules" }

func (r triageRules) run(_ context.Context, in Input) (stageOutput, string, error) {
	assessment := r.scorer.ScoreFromMedical(in.Prior.Medical)

	out := &TriageOutput{
		TriageScore:             assessment.Score,
		TriageLevel:             string(assessment.Level),
		RecommendedActionWindow: assessment.RecommendedWindow,
		EmergencySummary:        assessment.EmergencySummary,
		HealthFlags:             assessment.HealthFlags,
	}
	msg := fmt.Sprintf("응급도 %d단계(%s)로 분류했습니다.", out.TriageScore, out.TriageLevel)
	return out, msg, nil
}

// ── Ops / treatment planning ───────────────────────────────────

type opsRules struct{}

func (opsRules) name() string { return "ops-rules" }

func (opsRules) run(_ context.Context, in Input) (stageOutput, string, error) {
	med := in.Prior.Medical
	if med == nil {
		med = &MedicalOutput{}
		med.normalize()
	}

	score := 1
	window := "경과 관찰"
	if in.Prior.Triage != nil {
		score = in.Prior.Triage.TriageScore
		window = in.Prior.Triage.RecommendedActionWindow
	} else if med.NeedHospitalVisit {
		// No triage produced: fall back to the medical stage's defaults
		score = 3
		window = med.HospitalVisitTiming
	}

	topDisease := Disease{Name: "일반 증상", Probability: 40}
	if len(med.PossibleDiseases) > 0 {
		topDisease = med.PossibleDiseases[0]
	}

	var symptoms, bodyParts []string
	if in.Prior.Info != nil {
		symptoms = in.Prior.Info.SymptomKeywords
		bodyParts = in.Prior.Info.BodyPartFocus
	}

	actions := homeActions(med, in.Prior.Info)

	packetText := fmt.Sprintf(
		"반려동물: %s (%s, %s)\n주요 증상: %s\n1차 소견: %s\n응급도: %d/5\n권장 내원 시기: %s",
		in.Pet.Name, in.Pet.Species, in.Pet.Breed,
		in.Report.Description, med.PrimaryAssessment, score, med.HospitalVisitTiming,
	)

	out := &OpsOutput{
		MedicalLog: MedicalLogEntry{
			Symptoms:          symptoms,
			BodyParts:         bodyParts,
			PrimaryAssessment: med.PrimaryAssessment,
			PossibleDiseases:  med.PossibleDiseases,
			RiskLevel:         med.RiskLevel,
			TriageScore:       score,
		},
		OwnerDiagnosisSheet: model.SummarySheet{
			DiagnosisName:        topDisease.Name,
			Probability:          topDisease.Probability,
			ImmediateHomeActions: actions,
			NeedHospitalVisit:    med.NeedHospitalVisit,
			HospitalVisitTiming:  med.HospitalVisitTiming,
		},
		HospitalPrevisitPacket: PacketDraft{
			PacketTitle: fmt.Sprintf("%s 내원 전 진단 요약", in.Pet.Name),
			PacketText:  packetText,
			StructuredJSON: map[string]any{
				"pet_name":      in.Pet.Name,
				"species":       in.Pet.Species,
				"symptoms":      symptoms,
				"assessment":    med.PrimaryAssessment,
				"risk_level":    med.RiskLevel,
				"triage_score":  score,
				"action_window": window,
			},
		},
	}

	msg := "보호자용 안내서와 내원 준비 서류를 작성했습니다."
	return out, msg, nil
}

func homeActions(med *MedicalOutput, info *InfoOutput) []string {
	actions := []string{"충분한 수분을 공급해 주세요.", "증상 변화를 사진이나 메모로 기록해 주세요."}
	if info != nil {
		for _, cat := range info.PossibleCategories {
			switch cat {
			case "소화기 질환":
				actions = append(actions, "6-12시간 금식 후 소량의 부드러운 식사를 급여해 주세요.")
			case "피부 질환":
				actions = append(actions, "환부를 긁지 않도록 넥카라 착용을 고려해 주세요.")
			case "귀 질환":
				actions = append(actions, "귀 내부를 임의로 세척하지 말고 분비물 상태를 관찰해 주세요.")
			case "호흡기 질환":
				actions = append(actions, "습도를 유지하고 실내 온도 변화를 줄여 주세요.")
			}
		}
	}
	if med != nil && med.RiskLevel == RiskEmergency {
		actions = []string{"지금 바로 가까운 동물병원 응급실로 이동해 주세요."}
	}
	return actions
}

// ── Care / prescription ────────────────────────────────────────

type careRules struct{}

func (careRules) name() string { return "care-rules" }

func (careRules) run(_ context.Context, in Input) (stageOutput, string, error) {
	window := "48시간"
	if in.Prior.Triage != nil && in.Prior.Triage.TriageScore >= 4 {
		window = "즉시 내원"
	}

	feeding := "평소 식단을 유지하되 기호성이 좋은 부드러운 사료를 소량씩 급여해 주세요."
	monitoring := []string{"식욕", "활력", "배변 상태"}
	if in.Prior.Info != nil {
		for _, cat := range in.Prior.Info.PossibleCategories {
			switch cat {
			case "소화기 질환":
				feeding = "금식 후 저지방 처방식을 소량씩 나누어 급여하고, 수분 섭취를 우선해 주세요."
				monitoring = append(monitoring, "구토/설사 횟수")
			case "피부 질환":
				monitoring = append(monitoring, "발적 부위 크기")
			case "호흡기 질환":
				monitoring = append(monitoring, "호흡수")
			}
		}
	}

	var guide strings.Builder
	guide.WriteString(fmt.Sprintf("%s의 홈케어 안내\n\n", in.Pet.Name))
	guide.WriteString("1. " + feeding + "\n")
	guide.WriteString("2. 처방 없이 사람용 약을 임의로 급여하지 마세요.\n")
	guide.WriteString(fmt.Sprintf("3. %s 내에 증상이 호전되지 않으면 내원해 주세요.\n", window))

	out := &CareOutput{
		FullGuide: guide.String(),
		Plan: CarePlan{
			FeedingGuide:    feeding,
			MedicationNotes: "수의사 처방 전 임의 투약 금지",
			Monitoring:      monitoring,
			RecheckWindow:   window,
		},
	}

	msg := "홈케어 가이드를 전달했습니다."
	return out, msg, nil
}
