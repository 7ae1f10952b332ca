package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"prediagnosis/pkg"
)

// ErrSessionFault marks a session whose state can no longer be trusted, e.g.
// a current phase with no catalog tasks. The session terminates and the host
// maps the error to an apologetic response; it is never a panic.
var ErrSessionFault = errors.New("session fault")

// DefaultMaxSteps bounds an interview when the host does not configure a
// budget.
const DefaultMaxSteps = 30

// Caller-visible fallback texts. Collaborator failures never abort a turn;
// they degrade to one of these.
const (
	FallbackQuestion = "Could you tell me a bit more about your main discomfort - when it started, how it feels, and anything that makes it better or worse?"
	TimeoutResponse  = "Sorry, processing your message is taking longer than expected. Please send it again in a moment."
	FaultResponse    = "We ran into an internal problem with this interview and cannot continue. Please start a new session."

	closingCompleted = "Thank you, we have gathered the key information for your visit. A clinician will review your pre-diagnosis summary shortly."
	closingBudget    = "Thank you for your patience, we have reached the end of this interview. A clinician will review the information collected so far."
)

// tailTurns is how much of the transcript the completion assessor sees: the
// latest question/answer exchange.
const tailTurns = 2

type sessionState int

const (
	stateAwaitingFirstInput sessionState = iota
	stateRunning
	stateTerminated
)

// Config carries the per-session knobs fixed at construction time.
type Config struct {
	MaxSteps            int
	CompletionThreshold float64
	Policy              SelectorPolicy
}

// Deps are the external collaborators a session composes. Triager and
// Guidance are optional; OnTriage, when set, is invoked once after a
// successful triage classification (used to refresh dynamic guidance).
type Deps struct {
	Assessor  CompletionAssessor
	Updater   SummaryUpdater
	Questions QuestionGenerator
	Guidance  GuidanceGenerator
	Triager   Triager
	OnTriage  func(pkg.TriageResult)
}

// Workflow owns the full state of one interview session and runs its turn
// loop. All state is guarded by mu, which also serialises ProcessTurn: a
// second concurrent call for the same session blocks until the first one
// finishes.
type Workflow struct {
	mu sync.Mutex

	id  string
	log *zap.Logger

	catalog      *TaskCatalog
	board        *ScoreBoard
	selector     *Selector
	transitioner *Transitioner
	deps         Deps

	state        sessionState
	phase        pkg.Phase
	step         int
	turns        []pkg.ConversationTurn
	summary      pkg.ClinicalSummary
	triage       *pkg.TriageResult
	reason       pkg.TerminationReason
	lastResponse string
}

// NewWorkflow constructs a session over the catalog with the given
// collaborators. The selector policy, completion threshold and step budget
// are fixed for the session's lifetime.
func NewWorkflow(id string, catalog *TaskCatalog, deps Deps, cfg Config, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	board := NewScoreBoard(catalog, cfg.CompletionThreshold)
	return &Workflow{
		id:           id,
		log:          log.With(zap.String("session_id", id)),
		catalog:      catalog,
		board:        board,
		selector:     NewSelector(cfg.Policy, catalog, deps.Guidance, log.With(zap.String("session_id", id))),
		transitioner: NewTransitioner(catalog, cfg.MaxSteps),
		deps:         deps,
		state:        stateAwaitingFirstInput,
		phase:        catalog.FirstPhase(),
	}
}

// ID returns the session identifier.
func (w *Workflow) ID() string { return w.id }

// TurnResult is the outcome of one ProcessTurn call, snapshotted under the
// session lock. Step is the step counter after the call; Advanced reports
// whether this call moved it, so hosts can attribute side effects (metrics,
// persistence) to the turn that was actually processed rather than re-reading
// mutable session state.
type TurnResult struct {
	Response string
	Terminal bool
	Step     int
	Advanced bool
	Reason   pkg.TerminationReason
}

// ProcessTurn ingests the patient's reply (empty on the opening call) and
// returns the next system utterance plus the session's turn outcome.
//
// Terminated sessions are idempotent: every further call returns the cached
// last response without touching transcript, scores or summary. Collaborator
// failures are absorbed with fallbacks; only a session fault is returned as
// an error, and the caller's context expiring mid-turn yields a resumable
// apology without advancing the step counter or keeping the patient turn.
func (w *Workflow) ProcessTurn(ctx context.Context, incoming string) (TurnResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == stateTerminated {
		return TurnResult{Response: w.lastResponse, Terminal: true, Step: w.step, Reason: w.reason}, nil
	}
	if !w.catalog.HasPhase(w.phase) {
		w.log.Error("no catalog tasks for current phase", zap.String("phase", string(w.phase)), zap.Int("step", w.step))
		response := w.terminate(pkg.TerminationSessionFault, FaultResponse)
		return TurnResult{Response: response, Terminal: true, Step: w.step, Advanced: true, Reason: w.reason}, ErrSessionFault
	}

	first := w.state == stateAwaitingFirstInput
	turnStep := w.step + 1
	log := w.log.With(zap.Int("step", turnStep), zap.String("phase", string(w.phase)))

	turnsBefore := len(w.turns)
	if incoming != "" {
		w.appendTurn(pkg.RolePatient, incoming)
	}
	// An expired context aborts the turn without a trace: the patient turn is
	// dropped again so the retry does not duplicate it in the transcript.
	timedOut := func() TurnResult {
		w.turns = w.turns[:turnsBefore]
		return TurnResult{Response: TimeoutResponse, Step: w.step}
	}

	// The opening call carries no patient text to score or summarise; the
	// session opens with a system-initiated question.
	if !first {
		if a, err := w.deps.Assessor.Assess(ctx, w.tail(), w.phase, w.board.Pending(w.phase)); err != nil {
			if ctxExpired(ctx) {
				return timedOut(), nil
			}
			log.Warn("completion assessment failed, keeping scores unchanged", zap.String("stage", "assess"), zap.Error(err))
		} else if a.TaskName != "" {
			w.board.SetScore(w.phase, a.TaskName, a.Score)
			w.board.RecordRound(turnStep, w.phase)
			log.Debug("task score updated",
				zap.String("task", a.TaskName), zap.Float64("score", a.Score), zap.String("rationale", a.Rationale))
		}

		if sum, err := w.deps.Updater.Update(ctx, w.Transcript(), w.summary); err != nil {
			if ctxExpired(ctx) {
				return timedOut(), nil
			}
			log.Warn("summary update failed, keeping previous summary", zap.String("stage", "summary"), zap.Error(err))
		} else {
			w.summary = sum
		}
	}

	next, reason := w.transitioner.Next(w.phase, w.board, turnStep)
	if w.phase == pkg.PhaseTriage && next != pkg.PhaseTriage {
		w.runTriage(ctx, log)
	}
	if next == pkg.PhaseDone {
		closing := closingCompleted
		if reason == pkg.TerminationBudgetExhausted {
			closing = closingBudget
		}
		log.Info("session terminated", zap.String("reason", string(reason)))
		return TurnResult{Response: w.terminate(reason, closing), Terminal: true, Step: w.step, Advanced: true, Reason: reason}, nil
	}
	if next != w.phase {
		log.Info("phase advanced", zap.String("from", string(w.phase)), zap.String("to", string(next)))
		w.phase = next
	}
	w.state = stateRunning

	task, guidance := w.selector.Select(ctx, w.phase, w.board, w.summary)
	question, err := w.deps.Questions.Generate(ctx, task, guidance, w.summary)
	if err != nil || question == "" {
		if ctxExpired(ctx) {
			return timedOut(), nil
		}
		log.Warn("question generation failed, using generic re-prompt", zap.String("stage", "question"), zap.String("task", task.Name), zap.Error(err))
		question = FallbackQuestion
	}
	w.appendTurn(pkg.RoleSystem, question)
	w.step = turnStep
	w.lastResponse = question
	return TurnResult{Response: question, Step: w.step, Advanced: true}, nil
}

// runTriage classifies the patient's department when the triage phase is
// left behind. Failures are logged and dropped; the interview continues
// without a classification.
func (w *Workflow) runTriage(ctx context.Context, log *zap.Logger) {
	if w.deps.Triager == nil || w.triage != nil {
		return
	}
	res, err := w.deps.Triager.Triage(ctx, w.Transcript(), w.summary)
	if err != nil {
		log.Warn("triage classification failed", zap.String("stage", "triage"), zap.Error(err))
		return
	}
	w.triage = &res
	log.Info("triage classified",
		zap.String("primary_department", res.PrimaryDept), zap.String("secondary_department", res.SecondaryDept))
	if w.deps.OnTriage != nil {
		w.deps.OnTriage(res)
	}
}

func (w *Workflow) terminate(reason pkg.TerminationReason, response string) string {
	w.appendTurn(pkg.RoleSystem, response)
	w.step++
	w.state = stateTerminated
	w.phase = pkg.PhaseDone
	w.reason = reason
	w.lastResponse = response
	return response
}

func (w *Workflow) appendTurn(role pkg.TurnRole, text string) {
	w.turns = append(w.turns, pkg.ConversationTurn{
		TurnID:    len(w.turns) + 1,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	})
}

func (w *Workflow) tail() []pkg.ConversationTurn {
	n := len(w.turns)
	if n > tailTurns {
		return append([]pkg.ConversationTurn(nil), w.turns[n-tailTurns:]...)
	}
	return append([]pkg.ConversationTurn(nil), w.turns...)
}

// Transcript returns a copy of the session transcript in turn order. Safe to
// call from ProcessTurn itself; external callers should use TranscriptCopy.
func (w *Workflow) Transcript() []pkg.ConversationTurn {
	return append([]pkg.ConversationTurn(nil), w.turns...)
}

// TranscriptCopy returns the transcript under the session lock.
func (w *Workflow) TranscriptCopy() []pkg.ConversationTurn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Transcript()
}

// Step returns the number of turns processed so far.
func (w *Workflow) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Status reports the session's externally visible state.
func (w *Workflow) Status() pkg.SessionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	var triage *pkg.TriageResult
	if w.triage != nil {
		t := *w.triage
		triage = &t
	}
	return pkg.SessionStatus{
		SessionID:  w.id,
		Phase:      w.phase,
		Step:       w.step,
		Terminated: w.state == stateTerminated,
		Reason:     w.reason,
		Scores:     w.board.Snapshot(),
		Summary:    w.summary,
		Triage:     triage,
	}
}

// ScoreHistory returns the recorded per-round score snapshots.
func (w *Workflow) ScoreHistory() []RoundScores {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.board.History()
}

func ctxExpired(ctx context.Context) bool {
	return ctx.Err() != nil
}
