package core

import "prediagnosis/pkg"

// DefaultCompletionThreshold is the score at or above which a task counts as
// complete unless the session overrides it.
const DefaultCompletionThreshold = 0.85

// RoundScores is one historical snapshot of a phase's task scores, recorded
// after an assessor update.
type RoundScores struct {
	Round  int                `json:"round"`
	Phase  pkg.Phase          `json:"phase"`
	Scores map[string]float64 `json:"scores"`
}

// ScoreBoard tracks per-task completion scores for one session. It is owned
// by the session workflow and mutated only under the workflow's turn lock, so
// it carries no locking of its own.
type ScoreBoard struct {
	catalog   *TaskCatalog
	threshold float64
	scores    map[pkg.Phase]map[string]float64
	history   []RoundScores
}

// NewScoreBoard creates a board over the catalog. A non-positive threshold
// falls back to the default.
func NewScoreBoard(catalog *TaskCatalog, threshold float64) *ScoreBoard {
	if threshold <= 0 {
		threshold = DefaultCompletionThreshold
	}
	return &ScoreBoard{
		catalog:   catalog,
		threshold: threshold,
		scores:    make(map[pkg.Phase]map[string]float64),
	}
}

// Threshold returns the completion threshold in effect.
func (b *ScoreBoard) Threshold() float64 { return b.threshold }

// GetScores returns the score of every catalog task in the phase. Tasks never
// scored report 0.0.
func (b *ScoreBoard) GetScores(phase pkg.Phase) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range b.catalog.Tasks(phase) {
		out[t.Name] = b.scores[phase][t.Name]
	}
	return out
}

// SetScore records a score for (phase, task), clamping the input to [0, 1].
// Unknown task names are stored as-is; reads only ever surface catalog tasks.
func (b *ScoreBoard) SetScore(phase pkg.Phase, task string, score float64) {
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	if b.scores[phase] == nil {
		b.scores[phase] = make(map[string]float64)
	}
	b.scores[phase][task] = score
}

// IsTaskComplete reports whether the task's score has crossed the threshold.
func (b *ScoreBoard) IsTaskComplete(phase pkg.Phase, task string) bool {
	return b.scores[phase][task] >= b.threshold
}

// AreAllComplete reports whether every catalog task in the phase is complete.
// A phase with no catalog tasks is never complete; that is a catalog fault
// the workflow surfaces separately.
func (b *ScoreBoard) AreAllComplete(phase pkg.Phase) bool {
	tasks := b.catalog.Tasks(phase)
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !b.IsTaskComplete(phase, t.Name) {
			return false
		}
	}
	return true
}

// Pending returns the phase's incomplete tasks in catalog order.
func (b *ScoreBoard) Pending(phase pkg.Phase) []Task {
	var out []Task
	for _, t := range b.catalog.Tasks(phase) {
		if !b.IsTaskComplete(phase, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// RecordRound snapshots the phase's current scores into the history under the
// given round number.
func (b *ScoreBoard) RecordRound(round int, phase pkg.Phase) {
	b.history = append(b.history, RoundScores{
		Round:  round,
		Phase:  phase,
		Scores: b.GetScores(phase),
	})
}

// History returns all recorded rounds, oldest first.
func (b *ScoreBoard) History() []RoundScores {
	return append([]RoundScores(nil), b.history...)
}

// Snapshot returns every phase's scores, for status reporting.
func (b *ScoreBoard) Snapshot() map[pkg.Phase]map[string]float64 {
	out := make(map[pkg.Phase]map[string]float64)
	for _, p := range b.catalog.Phases() {
		out[p] = b.GetScores(p)
	}
	return out
}
