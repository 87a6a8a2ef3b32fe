package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ksy070822/petmily-backend/internal/llm"
)

// decodeResponse extracts the first JSON object from a model response and
// unmarshals it into the stage's schema type. Any failure here is an
// external-call failure: the adapter substitutes the rule-based result.
func decodeResponse[T any](response string) (*T, error) {
	block, err := llm.ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil, fmt.Errorf("unmarshal stage output: %w", err)
	}
	return &out, nil
}

// petSummary renders the normalized profile for prompt interpolation
func petSummary(in Input) string {
	return fmt.Sprintf("이름: %s / 종: %s / 품종: %s / 나이: %s / 체중: %s / 성별: %s",
		in.Pet.Name, in.Pet.Species, in.Pet.Breed, in.Pet.Age, in.Pet.Weight, in.Pet.Sex)
}

// symptomSummary renders the symptom description plus any attached photo
// references for prompt interpolation
func symptomSummary(in Input) string {
	if len(in.Report.ImageURLs) == 0 {
		return in.Report.Description
	}
	return fmt.Sprintf("%s\n첨부 사진 %d장: %s",
		in.Report.Description, len(in.Report.ImageURLs), strings.Join(in.Report.ImageURLs, ", "))
}

// priorJSON serializes the structured outputs of all previously executed
// stages for inclusion in the next stage's prompt.
func priorJSON(in Input) string {
	prior := map[string]any{}
	if in.Prior.CS != nil {
		prior["cs"] = in.Prior.CS
	}
	if in.Prior.Info != nil {
		prior["information"] = in.Prior.Info
	}
	if in.Prior.Medical != nil {
		prior["medical"] = in.Prior.Medical
	}
	if in.Prior.Triage != nil {
		prior["triage"] = in.Prior.Triage
	}
	if in.Prior.Ops != nil {
		prior["ops"] = in.Prior.Ops
	}
	raw, err := json.Marshal(prior)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

const jsonOnlyRule = "반드시 유효한 JSON 객체 하나만 출력하세요. 다른 설명은 쓰지 마세요."

// ── CS / reception ─────────────────────────────────────────────

type csModel struct {
	invoker llm.Invoker
}

func (csModel) name() string { return "cs-model" }

func (m csModel) run(ctx context.Context, in Input) (stageOutput, string, error) {
	system := `당신은 동물병원 접수 담당자입니다. 보호자의 증상 설명을 읽고 따뜻한 접수 안내 메시지와 1차 응급도 추정을 작성하세요.
다음 스키마로 응답하세요:
{"message": "보호자에게 보낼 안내 메시지", "first_urgency_assessment": "low|moderate|high|emergency"}
` + jsonOnlyRule

	user := fmt.Sprintf("반려동물 정보: %s\n증상 설명: %s", petSummary(in), symptomSummary(in))

	resp, err := m.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, "", err
	}
	out, err := decodeResponse[CSOutput](resp)
	if err != nil {
		return nil, "", err
	}
	return out, out.Message, nil
}

// ── Information desk ───────────────────────────────────────────

type infoModel struct {
	invoker llm.Invoker
}

func (infoModel) name() string { return "information-model" }

func (m infoModel) run(ctx context.Context, in Input) (stageOutput, string, error) {
	system := `당신은 동물병원 안내 데스크 담당자입니다. 증상 설명에서 키워드를 추출하고 의심 부위와 진료 카테고리를 분류하세요.
다음 스키마로 응답하세요:
{"symptom_keywords": [], "body_part_focus": [], "severity_hint": "low|medium|high", "possible_categories": [], "notes_for_medical_agent": ""}
카테고리는 소화기 질환/귀 질환/피부 질환/호흡기 질환/기타 중에서 고르세요. ` + jsonOnlyRule

	user := fmt.Sprintf("반려동물 정보: %s\n증상 설명: %s\n이전 단계 결과: %s",
		petSummary(in), symptomSummary(in), priorJSON(in))

	resp, err := m.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, "", err
	}
	out, err := decodeResponse[InfoOutput](resp)
	if err != nil {
		return nil, "", err
	}
	// The reception stage's emergency guess maps directly onto the
	// severity hint; the model must not downgrade it.
	out.applySeverityFloor(in.Prior.CS)
	return out, "증상 정보를 정리했습니다.", nil
}

// ── Medical / veterinarian ─────────────────────────────────────

type medicalModel struct {
	invoker llm.Invoker
}

func (medicalModel) name() string { return "medical-model" }

func (m medicalModel) run(ctx context.Context, in Input) (stageOutput, string, error) {
	system := `당신은 수의사입니다. 증상과 이전 단계 분류 결과, 참고 자료를 바탕으로 1차 소견을 작성하세요.
다음 스키마로 응답하세요:
{"primary_assessment": "", "possible_diseases": [{"name": "", "probability": 0}], "risk_level": "low|moderate|high|emergency", "need_hospital_visit": false, "hospital_visit_timing": "", "triage_score": 1, "health_flags": {"ear_issue": false, "digestion_issue": false, "skin_issue": false, "fever": false, "energy_level": 0.5}}
probability는 0-100 정수입니다. ` + jsonOnlyRule

	user := fmt.Sprintf("반려동물 정보: %s\n증상 설명: %s\n이전 단계 결과: %s",
		petSummary(in), symptomSummary(in), priorJSON(in))
	if in.Context != "" {
		user += "\n\n참고 자료:\n" + in.Context
	}

	resp, err := m.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, "", err
	}
	out, err := decodeResponse[MedicalOutput](resp)
	if err != nil {
		return nil, "", err
	}
	return out, "1차 소견을 정리했습니다.", nil
}

// ── Triage ─────────────────────────────────────────────────────

type triageModel struct {
	invoker llm.Invoker
	scorer  *Scorer
}

func (triageModel) name() string { return "triage-model" }

func (m triageModel) run(ctx context.Context, in Input) (stageOutput, string, error) {
	system := `당신은 응급 분류 담당자입니다. 수의사 소견을 바탕으로 1-5 단계 응급도를 매기세요. 1은 일상 관찰, 5는 생명 위협입니다.
다음 스키마로 응답하세요:
{"triage_score": 1, "triage_level": "", "recommended_action_window": "", "emergency_summary": "", "health_flags": {"ear_issue": false, "digestion_issue": false, "skin_issue": false, "fever": false, "energy_level": 0.5}}
` + jsonOnlyRule

	user := fmt.Sprintf("반려동물 정보: %s\n이전 단계 결과: %s", petSummary(in), priorJSON(in))

	resp, err := m.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, "", err
	}
	out, err := decodeResponse[TriageOutput](resp)
	if err != nil {
		return nil, "", err
	}
	// The deterministic policy bounds whatever the model proposed
	assessment := m.scorer.Reconcile(in.Prior.Medical, out)
	out.TriageScore = assessment.Score
	out.TriageLevel = string(assessment.Level)
	out.RecommendedActionWindow = assessment.RecommendedWindow
	out.EmergencySummary = assessment.EmergencySummary
	out.HealthFlags = assessment.HealthFlags

	msg := fmt.Sprintf("응급도 %d단계(%s)로 분류했습니다.", out.TriageScore, out.TriageLevel)
	return out, msg, nil
}

// ── Ops / treatment planning ───────────────────────────────────

type opsModel struct {
	invoker llm.Invoker
}

func (opsModel) name() string { return "ops-model" }

func (m opsModel) run(ctx context.Context, in Input) (stageOutput, string, error) {
	system := `당신은 진료 운영 담당자입니다. 모든 이전 단계 결과를 종합해 보호자용 안내서와 병원 내원 전 요약 서류를 작성하세요.
다음 스키마로 응답하세요:
{"medical_log": {"symptoms": [], "body_parts": [], "primary_assessment": "", "possible_diseases": [{"name": "", "probability": 0}], "risk_level": "", "triage_score": 1}, "owner_friendly_diagnosis_sheet": {"diagnosis_name": "", "probability": 0, "immediate_home_actions": [], "need_hospital_visit": false, "hospital_visit_timing": ""}, "hospital_previsit_packet": {"packet_title": "", "packet_text": "", "structured_json": {}}}
` + jsonOnlyRule

	user := fmt.Sprintf("반려동물 정보: %s\n증상 설명: %s\n이전 단계 결과: %s",
		petSummary(in), symptomSummary(in), priorJSON(in))

	resp, err := m.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, "", err
	}
	out, err := decodeResponse[OpsOutput](resp)
	if err != nil {
		return nil, "", err
	}
	return out, "보호자용 안내서와 내원 준비 서류를 작성했습니다.", nil
}

// ── Care / prescription ────────────────────────────────────────

type careModel struct {
	invoker llm.Invoker
}

func (careModel) name() string { return "care-model" }

func (m careModel) run(ctx context.Context, in Input) (stageOutput, string, error) {
	system := `당신은 동물 약국/홈케어 담당자입니다. 치료 계획과 응급도를 바탕으로 집에서 할 수 있는 케어 가이드를 작성하세요.
다음 스키마로 응답하세요:
{"fullGuide": "", "json": {"feeding_guide": "", "medication_notes": "", "monitoring": [], "recheck_window": ""}}
처방약을 임의로 지정하지 마세요. ` + jsonOnlyRule

	user := fmt.Sprintf("반려동물 정보: %s\n이전 단계 결과: %s", petSummary(in), priorJSON(in))

	resp, err := m.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, "", err
	}
	out, err := decodeResponse[CareOutput](resp)
	if err != nil {
		return nil, "", err
	}
	return out, "홈케어 가이드를 전달했습니다.", nil
}
