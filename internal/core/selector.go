package core

import (
	"context"

	"go.uber.org/zap"

	"prediagnosis/pkg"
)

// SelectorPolicy picks how the next task is chosen within a phase. The policy
// is fixed at session construction and never switched mid-session.
type SelectorPolicy string

const (
	// PolicySequential returns the first pending task in catalog order.
	PolicySequential SelectorPolicy = "sequential"
	// PolicyFixed returns the first pending task with constant guidance;
	// used for smoke tests and non-LLM decision paths.
	PolicyFixed SelectorPolicy = "fixed"
	// PolicyScoreDriven returns the pending task with the lowest score,
	// ties broken by catalog order.
	PolicyScoreDriven SelectorPolicy = "score_driven"
	// PolicyAdaptive selects like score_driven but asks the guidance
	// generator for task-specific inquiry guidance.
	PolicyAdaptive SelectorPolicy = "adaptive"
)

// ParseSelectorPolicy maps a config string onto a policy, defaulting to
// sequential for anything unrecognised.
func ParseSelectorPolicy(s string) SelectorPolicy {
	switch SelectorPolicy(s) {
	case PolicyFixed, PolicyScoreDriven, PolicyAdaptive, PolicySequential:
		return SelectorPolicy(s)
	default:
		return PolicySequential
	}
}

// FixedGuidance is the constant inquiry guidance paired with the fixed and
// score-driven policies.
const FixedGuidance = "Follow the standard intake interview flow: focus on the selected topic, ask targeted and answerable questions, and only request information the patient can provide verbally."

// fallbackGuidance is used when adaptive guidance generation fails.
const fallbackGuidance = "Ask about the patient's main symptoms, how the illness began and how it has developed, keeping each question short and specific."

// Selector implements the next-task decision for one session.
type Selector struct {
	policy   SelectorPolicy
	catalog  *TaskCatalog
	guidance GuidanceGenerator
	log      *zap.Logger
}

// NewSelector builds a selector. The guidance generator may be nil for any
// policy other than adaptive.
func NewSelector(policy SelectorPolicy, catalog *TaskCatalog, guidance GuidanceGenerator, log *zap.Logger) *Selector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{policy: policy, catalog: catalog, guidance: guidance, log: log}
}

// Policy returns the configured policy.
func (s *Selector) Policy() SelectorPolicy { return s.policy }

// Select picks the next task to pursue in the phase and the guidance to pass
// to question generation. It always returns a task: with no pending tasks it
// falls back to the phase's first declared task, which is a warning condition
// rather than an error.
func (s *Selector) Select(ctx context.Context, phase pkg.Phase, board *ScoreBoard, summary pkg.ClinicalSummary) (Task, string) {
	pending := board.Pending(phase)

	var task Task
	if len(pending) == 0 {
		first, ok := s.catalog.First(phase)
		if !ok {
			s.log.Warn("selector called for phase with no catalog tasks", zap.String("phase", string(phase)))
			return Task{Name: "general_information", Description: "Collect general information about the patient's condition."}, FixedGuidance
		}
		s.log.Warn("no pending tasks in phase, falling back to first declared task",
			zap.String("phase", string(phase)), zap.String("task", first.Name))
		task = first
	} else {
		switch s.policy {
		case PolicyScoreDriven, PolicyAdaptive:
			task = lowestScored(pending, board.GetScores(phase))
		default: // sequential and fixed both take catalog order
			task = pending[0]
		}
	}

	if s.policy == PolicyAdaptive && s.guidance != nil {
		text, err := s.guidance.Guidance(ctx, task, summary)
		if err != nil || text == "" {
			s.log.Warn("adaptive guidance generation failed, using fallback",
				zap.String("phase", string(phase)), zap.String("task", task.Name), zap.Error(err))
			return task, fallbackGuidance
		}
		return task, text
	}
	return task, FixedGuidance
}

// lowestScored returns the pending task with the minimum score. Pending tasks
// arrive in catalog order, so a strict less-than keeps the earliest-declared
// task on ties.
func lowestScored(pending []Task, scores map[string]float64) Task {
	best := pending[0]
	bestScore := scores[best.Name]
	for _, t := range pending[1:] {
		if scores[t.Name] < bestScore {
			best = t
			bestScore = scores[t.Name]
		}
	}
	return best
}
