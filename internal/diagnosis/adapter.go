package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// Input is what a stage sees when it runs: the normalized profile and
// report, the structured outputs of all previously executed stages, and
// (for the medical stage) the assembled auxiliary context. The pipeline is
// strictly forward-only; a stage never sees a later stage's output.
type Input struct {
	Pet     model.PetProfile
	Report  model.SymptomReport
	Prior   Results
	Context string
}

// Results accumulates the typed outputs of completed stages
type Results struct {
	CS      *CSOutput
	Info    *InfoOutput
	Medical *MedicalOutput
	Triage  *TriageOutput
	Ops     *OpsOutput
	Care    *CareOutput
}

// stageOutput is implemented by all six structured stage outputs
type stageOutput interface {
	normalize()
}

// strategy produces one stage's output. A model-backed strategy may fail;
// a rule-based strategy must always succeed with schema-valid output.
type strategy interface {
	name() string
	run(ctx context.Context, in Input) (stageOutput, string, error)
}

// Adapter wraps one pipeline stage. It runs the model-backed strategy when
// one is configured and substitutes the deterministic rule-based strategy
// whenever the model call fails or returns unparseable output, so the
// stage always yields a schema-conforming result.
type Adapter struct {
	role     model.AgentRole
	primary  strategy // nil when no model credential is configured
	fallback strategy
	logger   *zap.Logger
}

// NewAdapter creates an adapter for one pipeline role. primary may be nil.
func NewAdapter(role model.AgentRole, primary, fallback strategy, logger *zap.Logger) *Adapter {
	if fallback == nil {
		panic("diagnosis: adapter requires a fallback strategy")
	}
	return &Adapter{role: role, primary: primary, fallback: fallback, logger: logger}
}

// Run executes the stage and returns its immutable AgentResult along with
// the typed output for downstream stages. The returned error is fatal to
// the pipeline; external-call failures are absorbed here.
func (a *Adapter) Run(ctx context.Context, in Input) (model.AgentResult, stageOutput, error) {
	out, msg, fallbackUsed, err := a.execute(ctx, in)
	if err != nil {
		return model.AgentResult{}, nil, err
	}

	out.normalize()

	raw, err := json.Marshal(out)
	if err != nil {
		return model.AgentResult{}, nil, fmt.Errorf("marshal %s output: %w", a.role, err)
	}

	return model.AgentResult{
		Role:           a.role,
		StructuredJSON: raw,
		Message:        msg,
		FallbackUsed:   fallbackUsed,
		Timestamp:      time.Now(),
	}, out, nil
}

func (a *Adapter) execute(ctx context.Context, in Input) (stageOutput, string, bool, error) {
	if a.primary != nil {
		out, msg, err := a.primary.run(ctx, in)
		if err == nil {
			return out, msg, false, nil
		}
		a.logger.Warn("model-backed stage failed, using rule-based fallback",
			zap.String("role", string(a.role)),
			zap.String("strategy", a.primary.name()),
			zap.Error(err),
		)
	}

	out, msg, err := a.fallback.run(ctx, in)
	if err != nil {
		// Rule strategies are written to never fail; anything here is a
		// programming defect and fatal to the run.
		return nil, "", false, fmt.Errorf("fallback strategy for %s failed: %w", a.role, err)
	}
	return out, msg, a.primary != nil, nil
}
