package core

import (
	"context"

	"prediagnosis/pkg"
)

// The interview engine treats all natural-language work as external
// collaborators behind these interfaces. Every call may block for a long time
// and may fail; the workflow absorbs failures with deterministic fallbacks
// and never aborts a turn because of one.

// Assessment is the completion assessor's verdict on one exchange.
type Assessment struct {
	TaskName  string  `json:"task"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// CompletionAssessor scores how far the latest exchange advanced one of the
// phase's pending tasks.
type CompletionAssessor interface {
	Assess(ctx context.Context, tail []pkg.ConversationTurn, phase pkg.Phase, pending []Task) (Assessment, error)
}

// SummaryUpdater rewrites the clinical summary from the full transcript and
// its own previous output. Fields are replaced wholesale, never merged.
type SummaryUpdater interface {
	Update(ctx context.Context, transcript []pkg.ConversationTurn, prior pkg.ClinicalSummary) (pkg.ClinicalSummary, error)
}

// QuestionGenerator produces the next question to pose for the selected task.
type QuestionGenerator interface {
	Generate(ctx context.Context, task Task, guidance string, summary pkg.ClinicalSummary) (string, error)
}

// GuidanceGenerator produces task-specific inquiry guidance. Only the
// adaptive selector policy consults it.
type GuidanceGenerator interface {
	Guidance(ctx context.Context, task Task, summary pkg.ClinicalSummary) (string, error)
}

// Triager classifies the patient into a primary and secondary department once
// the triage phase completes.
type Triager interface {
	Triage(ctx context.Context, transcript []pkg.ConversationTurn, summary pkg.ClinicalSummary) (pkg.TriageResult, error)
}

// ResponseCollector supplies the patient side of the conversation: a
// simulated patient model, or a human-input channel. The case context, when
// any, is bound at construction.
type ResponseCollector interface {
	Collect(ctx context.Context, question string, firstTurn bool) (string, error)
}
