package core

import "prediagnosis/pkg"

// Transitioner decides when the interview moves to its next phase and when it
// ends. Budget exhaustion forces termination regardless of completion and is
// recorded distinctly from natural completion.
type Transitioner struct {
	catalog  *TaskCatalog
	maxSteps int
}

// NewTransitioner builds a transitioner with the session's step budget.
func NewTransitioner(catalog *TaskCatalog, maxSteps int) *Transitioner {
	return &Transitioner{catalog: catalog, maxSteps: maxSteps}
}

// Next returns the phase to run after the given step has been processed, and
// a termination reason when that phase is Done. step is the number of turns
// processed so far, including the one just scored.
func (t *Transitioner) Next(current pkg.Phase, board *ScoreBoard, step int) (pkg.Phase, pkg.TerminationReason) {
	if current == pkg.PhaseDone {
		return pkg.PhaseDone, pkg.TerminationCompleted
	}
	if t.maxSteps > 0 && step >= t.maxSteps {
		return pkg.PhaseDone, pkg.TerminationBudgetExhausted
	}
	// A completed phase may expose an already-complete successor (scores
	// carry over from earlier assessments), so advance as far as the
	// scoreboard allows in one call.
	phase := current
	for phase != pkg.PhaseDone && board.AreAllComplete(phase) {
		phase = t.catalog.NextPhase(phase)
	}
	if phase == pkg.PhaseDone {
		return pkg.PhaseDone, pkg.TerminationCompleted
	}
	return phase, pkg.TerminationNone
}
