package guidance

import (
	"context"
	"sync"

	"prediagnosis/internal/core"
	"prediagnosis/pkg"
)

// SessionGuidance combines the file-based department guidance with a model
// backed generator for one session. Before triage only the model speaks;
// once a department is known the file guidance is prepended so the question
// generator asks the department's canonical follow-ups.
type SessionGuidance struct {
	mu        sync.Mutex
	loader    *Loader
	base      core.GuidanceGenerator
	dept      string
	candidate string
}

// NewSessionGuidance builds the adapter. base may be nil, in which case only
// file guidance is produced.
func NewSessionGuidance(loader *Loader, base core.GuidanceGenerator) *SessionGuidance {
	return &SessionGuidance{loader: loader, base: base}
}

// SetTriage records the classified departments; subsequent Guidance calls
// include their inquiry and comparison guidance.
func (g *SessionGuidance) SetTriage(t pkg.TriageResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dept = t.PrimaryDept
	g.candidate = t.CandidatePrimary
}

// Guidance implements core.GuidanceGenerator.
func (g *SessionGuidance) Guidance(ctx context.Context, task core.Task, summary pkg.ClinicalSummary) (string, error) {
	g.mu.Lock()
	dept, candidate := g.dept, g.candidate
	g.mu.Unlock()

	var fileText string
	if g.loader != nil && dept != "" {
		fileText = g.loader.InquiryGuidance(dept)
		if cmp := g.loader.ComparisonGuidance(dept, candidate); cmp != "" {
			if fileText != "" {
				fileText += "\n\n"
			}
			fileText += cmp
		}
	}
	if g.base == nil {
		return fileText, nil
	}

	modelText, err := g.base.Guidance(ctx, task, summary)
	if err != nil {
		if fileText != "" {
			return fileText, nil
		}
		return "", err
	}
	if fileText == "" {
		return modelText, nil
	}
	return fileText + "\n\n" + modelText, nil
}
