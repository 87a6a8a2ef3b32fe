package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ksy070822/petmily-backend/internal/llm"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// ProgressKind tags a progress event. The set is closed: UI consumers can
// switch exhaustively over it.
type ProgressKind string

const (
	ProgressStageStarted   ProgressKind = "stage_started"
	ProgressStageCompleted ProgressKind = "stage_completed"
	ProgressStageFallback  ProgressKind = "stage_fallback"
	ProgressPipelineFailed ProgressKind = "pipeline_failed"
)

// ProgressEvent is a fire-and-forget notification emitted around each
// stage transition. It is never a control input.
type ProgressEvent struct {
	Kind      ProgressKind    `json:"kind"`
	Role      model.AgentRole `json:"role,omitempty"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProgressFunc receives progress events. Panics in the callback are
// recovered and must not abort the pipeline.
type ProgressFunc func(ProgressEvent)

var stageStartMessages = map[model.AgentRole]string{
	model.RoleCS:          "접수 담당자가 증상을 확인하고 있어요.",
	model.RoleInformation: "증상 정보를 분류하고 있어요.",
	model.RoleMedical:     "수의사가 소견을 작성하고 있어요.",
	model.RoleTriage:      "응급도를 평가하고 있어요.",
	model.RoleOps:         "진단 안내서를 만들고 있어요.",
	model.RoleCare:        "홈케어 가이드를 준비하고 있어요.",
}

// Orchestrator runs the six diagnosis stages strictly in order
// CS → INFO → MEDICAL → TRIAGE → OPS → CARE, accumulating each stage's
// structured output into the next stage's input, and aggregates the
// results into one DiagnosisRecord. There is no branching, no retry to an
// earlier state, and no mid-run cancellation beyond context expiry.
type Orchestrator struct {
	cs        *Adapter
	info      *Adapter
	medical   *Adapter
	triage    *Adapter
	ops       *Adapter
	care      *Adapter
	assembler *ContextAssembler
	scorer    *Scorer
	logger    *zap.Logger
}

// NewOrchestrator wires the six agent adapters. When invoker is nil no
// model credential is configured and every stage runs its rule-based
// strategy directly.
func NewOrchestrator(invoker llm.Invoker, faq FAQSource, history HistorySource, logger *zap.Logger) *Orchestrator {
	scorer := NewScorer(logger)

	var cs, info, medical, triage, ops, care strategy
	if invoker != nil {
		cs = csModel{invoker: invoker}
		info = infoModel{invoker: invoker}
		medical = medicalModel{invoker: invoker}
		triage = triageModel{invoker: invoker, scorer: scorer}
		ops = opsModel{invoker: invoker}
		care = careModel{invoker: invoker}
	}

	return &Orchestrator{
		cs:        NewAdapter(model.RoleCS, cs, csRules{}, logger),
		info:      NewAdapter(model.RoleInformation, info, infoRules{}, logger),
		medical:   NewAdapter(model.RoleMedical, medical, medicalRules{}, logger),
		triage:    NewAdapter(model.RoleTriage, triage, triageRules{scorer: scorer}, logger),
		ops:       NewAdapter(model.RoleOps, ops, opsRules{}, logger),
		care:      NewAdapter(model.RoleCare, care, careRules{}, logger),
		assembler: NewContextAssembler(faq, history, logger),
		scorer:    scorer,
		logger:    logger,
	}
}

type pipelineState struct {
	pet     model.PetProfile
	report  model.SymptomReport
	context string
	prior   Results
	results []model.AgentResult
}

type stageHandler struct {
	role model.AgentRole
	run  func(ctx context.Context, st *pipelineState) (model.AgentResult, error)
}

// Run executes one diagnosis. Input records may be incomplete; they are
// normalized before any stage sees them. The operation is all-or-nothing:
// a fatal stage error returns no partial record.
func (o *Orchestrator) Run(ctx context.Context, pet model.PetProfile, report model.SymptomReport, onProgress ProgressFunc) (*model.DiagnosisRecord, error) {
	start := time.Now()
	st := &pipelineState{
		pet:    NormalizePet(pet),
		report: NormalizeReport(report),
	}

	o.logger.Info("diagnosis pipeline started",
		zap.String("pet_id", st.pet.ID),
		zap.String("species", string(st.pet.Species)),
	)

	for _, stage := range o.stages() {
		o.emit(onProgress, ProgressEvent{
			Kind:      ProgressStageStarted,
			Role:      stage.role,
			Message:   stageStartMessages[stage.role],
			Timestamp: time.Now(),
		})

		result, err := o.runStage(ctx, stage, st)
		if err != nil {
			o.emit(onProgress, ProgressEvent{
				Kind:      ProgressPipelineFailed,
				Role:      stage.role,
				Message:   "진단을 완료하지 못했습니다.",
				Timestamp: time.Now(),
			})
			o.logger.Error("diagnosis pipeline failed",
				zap.String("stage", string(stage.role)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("stage %s: %w", stage.role, err)
		}

		if result.FallbackUsed {
			o.emit(onProgress, ProgressEvent{
				Kind:      ProgressStageFallback,
				Role:      stage.role,
				Message:   result.Message,
				Timestamp: time.Now(),
			})
		}

		st.results = append(st.results, result)

		o.emit(onProgress, ProgressEvent{
			Kind:      ProgressStageCompleted,
			Role:      stage.role,
			Message:   result.Message,
			Timestamp: time.Now(),
		})
	}

	record := o.aggregate(st)

	o.logger.Info("diagnosis pipeline completed",
		zap.String("diagnosis_id", record.ID),
		zap.String("pet_id", st.pet.ID),
		zap.Int("triage_score", record.Triage.Score),
		zap.Duration("duration", time.Since(start)),
	)

	return record, nil
}

// runStage executes one stage, converting panics from deep inside an
// adapter into a fatal pipeline error rather than crashing the caller.
func (o *Orchestrator) runStage(ctx context.Context, stage stageHandler, st *pipelineState) (result model.AgentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.role, r)
		}
	}()
	return stage.run(ctx, st)
}

func (o *Orchestrator) stages() []stageHandler {
	return []stageHandler{
		{model.RoleCS, func(ctx context.Context, st *pipelineState) (model.AgentResult, error) {
			result, out, err := o.cs.Run(ctx, o.input(st))
			if err != nil {
				return model.AgentResult{}, err
			}
			st.prior.CS = out.(*CSOutput)
			return result, nil
		}},
		{model.RoleInformation, func(ctx context.Context, st *pipelineState) (model.AgentResult, error) {
			result, out, err := o.info.Run(ctx, o.input(st))
			if err != nil {
				return model.AgentResult{}, err
			}
			st.prior.Info = out.(*InfoOutput)
			return result, nil
		}},
		{model.RoleMedical, func(ctx context.Context, st *pipelineState) (model.AgentResult, error) {
			// Context is assembled right before the medical stage so the
			// lookup can use the Information stage's keywords.
			var keywords []string
			if st.prior.Info != nil {
				keywords = st.prior.Info.SymptomKeywords
			}
			st.context = o.assembler.Assemble(ctx, st.pet, keywords)

			in := o.input(st)
			in.Context = st.context
			result, out, err := o.medical.Run(ctx, in)
			if err != nil {
				return model.AgentResult{}, err
			}
			st.prior.Medical = out.(*MedicalOutput)
			return result, nil
		}},
		{model.RoleTriage, func(ctx context.Context, st *pipelineState) (model.AgentResult, error) {
			result, out, err := o.triage.Run(ctx, o.input(st))
			if err != nil {
				// Triage computation failure is non-fatal: later stages
				// fall back to the medical stage's defaults.
				o.logger.Warn("triage stage failed, continuing without triage output", zap.Error(err))
				return o.defaultTriageResult(st)
			}
			st.prior.Triage = out.(*TriageOutput)
			return result, nil
		}},
		{model.RoleOps, func(ctx context.Context, st *pipelineState) (model.AgentResult, error) {
			result, out, err := o.ops.Run(ctx, o.input(st))
			if err != nil {
				return model.AgentResult{}, err
			}
			st.prior.Ops = out.(*OpsOutput)
			return result, nil
		}},
		{model.RoleCare, func(ctx context.Context, st *pipelineState) (model.AgentResult, error) {
			result, out, err := o.care.Run(ctx, o.input(st))
			if err != nil {
				return model.AgentResult{}, err
			}
			st.prior.Care = out.(*CareOutput)
			return result, nil
		}},
	}
}

// defaultTriageResult synthesizes a schema-valid triage result straight
// from the deterministic scorer when the triage adapter itself failed.
func (o *Orchestrator) defaultTriageResult(st *pipelineState) (model.AgentResult, error) {
	assessment := o.scorer.ScoreFromMedical(st.prior.Medical)
	out := &TriageOutput{
		TriageScore:             assessment.Score,
		TriageLevel:             string(assessment.Level),
		RecommendedActionWindow: assessment.RecommendedWindow,
		EmergencySummary:        assessment.EmergencySummary,
		HealthFlags:             assessment.HealthFlags,
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return model.AgentResult{}, fmt.Errorf("marshal default triage output: %w", err)
	}
	st.prior.Triage = out
	return model.AgentResult{
		Role:           model.RoleTriage,
		StructuredJSON: raw,
		Message:        fmt.Sprintf("응급도 %d단계(%s)로 분류했습니다.", out.TriageScore, out.TriageLevel),
		FallbackUsed:   true,
		Timestamp:      time.Now(),
	}, nil
}

func (o *Orchestrator) input(st *pipelineState) Input {
	return Input{Pet: st.pet, Report: st.report, Prior: st.prior}
}

// aggregate assembles the final record from all six stage results
func (o *Orchestrator) aggregate(st *pipelineState) *model.DiagnosisRecord {
	assessment := o.scorer.Reconcile(st.prior.Medical, st.prior.Triage)

	var summary model.SummarySheet
	var packet model.PrevisitPacket
	if st.prior.Ops != nil {
		summary = st.prior.Ops.OwnerDiagnosisSheet
		// The owner sheet may not contradict an urgent or emergency score
		if assessment.Score >= 4 && !summary.NeedHospitalVisit {
			summary.NeedHospitalVisit = true
			summary.HospitalVisitTiming = assessment.RecommendedWindow
		}
		draft := st.prior.Ops.HospitalPrevisitPacket
		structured, err := json.Marshal(draft.StructuredJSON)
		if err != nil {
			structured = []byte("{}")
		}
		packet = model.PrevisitPacket{
			Title:          draft.PacketTitle,
			Text:           draft.PacketText,
			StructuredJSON: structured,
		}
	}

	return &model.DiagnosisRecord{
		ID:           uuid.New().String(),
		PetID:        st.pet.ID,
		GuardianID:   st.pet.GuardianID,
		Report:       st.report,
		AgentResults: st.results,
		Triage:       &assessment,
		Summary:      summary,
		Packet:       packet,
		CreatedAt:    time.Now(),
	}
}

// emit delivers a progress event, shielding the pipeline from a
// misbehaving callback.
func (o *Orchestrator) emit(onProgress ProgressFunc, event ProgressEvent) {
	if onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("progress callback panicked", zap.Any("panic", r))
		}
	}()
	onProgress(event)
}
