package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediagnosis/pkg"
)

// fakeCollab implements every collaborator interface with scripted behaviour.
// Assess always credits the first pending task with the configured score.
type fakeCollab struct {
	score       float64
	assessErr   error
	updateErr   error
	questionErr error
	triageErr   error
	triage      pkg.TriageResult

	assessCalls int
	triageCalls int
}

func (f *fakeCollab) Assess(ctx context.Context, tail []pkg.ConversationTurn, phase pkg.Phase, pending []Task) (Assessment, error) {
	f.assessCalls++
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	if f.assessErr != nil {
		return Assessment{}, f.assessErr
	}
	if len(pending) == 0 {
		return Assessment{}, errors.New("no pending tasks")
	}
	return Assessment{TaskName: pending[0].Name, Score: f.score, Rationale: "scripted"}, nil
}

func (f *fakeCollab) Update(ctx context.Context, transcript []pkg.ConversationTurn, prior pkg.ClinicalSummary) (pkg.ClinicalSummary, error) {
	if err := ctx.Err(); err != nil {
		return pkg.ClinicalSummary{}, err
	}
	if f.updateErr != nil {
		return pkg.ClinicalSummary{}, f.updateErr
	}
	return pkg.ClinicalSummary{ChiefComplaint: "chest pain for two days"}, nil
}

func (f *fakeCollab) Generate(ctx context.Context, task Task, guidance string, summary pkg.ClinicalSummary) (string, error) {
	if f.questionErr != nil {
		return "", f.questionErr
	}
	return fmt.Sprintf("Please tell me about %s.", task.Name), nil
}

func (f *fakeCollab) Guidance(ctx context.Context, task Task, summary pkg.ClinicalSummary) (string, error) {
	return "scripted guidance", nil
}

func (f *fakeCollab) Triage(ctx context.Context, transcript []pkg.ConversationTurn, summary pkg.ClinicalSummary) (pkg.TriageResult, error) {
	f.triageCalls++
	if f.triageErr != nil {
		return pkg.TriageResult{}, f.triageErr
	}
	return f.triage, nil
}

func smallCatalog() *TaskCatalog {
	return NewCatalog(
		[]pkg.Phase{pkg.PhaseTriage, pkg.PhasePresentIllness},
		map[pkg.Phase][]Task{
			pkg.PhaseTriage: {
				{Name: "dept", Description: "Determine the department."},
			},
			pkg.PhasePresentIllness: {
				{Name: "onset", Description: "Establish the onset."},
				{Name: "progression", Description: "Trace the progression."},
			},
		},
	)
}

func newTestWorkflow(t *testing.T, fake *fakeCollab, cfg Config, catalog *TaskCatalog) *Workflow {
	t.Helper()
	deps := Deps{Assessor: fake, Updater: fake, Questions: fake, Guidance: fake, Triager: fake}
	return NewWorkflow("sess-1", catalog, deps, cfg, nil)
}

func TestWorkflowOpeningTurnAsksWithoutAssessing(t *testing.T) {
	fake := &fakeCollab{score: 1.0}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	res, err := wf.ProcessTurn(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.Equal(t, "Please tell me about dept.", res.Response)
	assert.Equal(t, 1, res.Step)
	assert.True(t, res.Advanced)
	assert.Equal(t, 0, fake.assessCalls)
	assert.Equal(t, 1, wf.Step())

	transcript := wf.TranscriptCopy()
	require.Len(t, transcript, 1)
	assert.Equal(t, pkg.RoleSystem, transcript[0].Role)
}

func TestWorkflowRunsToNaturalCompletion(t *testing.T) {
	fake := &fakeCollab{
		score:  1.0,
		triage: pkg.TriageResult{PrimaryDept: "Internal Medicine", SecondaryDept: "Cardiology"},
	}
	var triaged []pkg.TriageResult
	catalog := smallCatalog()
	wf := NewWorkflow("sess-1", catalog, Deps{
		Assessor: fake, Updater: fake, Questions: fake, Guidance: fake, Triager: fake,
		OnTriage: func(tr pkg.TriageResult) { triaged = append(triaged, tr) },
	}, Config{}, nil)

	ctx := context.Background()
	var res TurnResult
	var err error
	for _, reply := range []string{"", "my chest hurts", "it started two days ago", "it has gotten worse"} {
		res, err = wf.ProcessTurn(ctx, reply)
		require.NoError(t, err)
	}

	assert.True(t, res.Terminal)
	assert.Equal(t, closingCompleted, res.Response)
	assert.Equal(t, pkg.TerminationCompleted, res.Reason)
	assert.Equal(t, 4, res.Step)

	status := wf.Status()
	assert.True(t, status.Terminated)
	assert.Equal(t, pkg.TerminationCompleted, status.Reason)
	assert.Equal(t, pkg.PhaseDone, status.Phase)
	assert.Equal(t, 4, status.Step)
	assert.Equal(t, "chest pain for two days", status.Summary.ChiefComplaint)
	require.NotNil(t, status.Triage)
	assert.Equal(t, "Internal Medicine", status.Triage.PrimaryDept)

	// Triage fired exactly once, when the triage phase was left behind.
	assert.Equal(t, 1, fake.triageCalls)
	require.Len(t, triaged, 1)

	// 3 questions + 3 answers + closing message.
	assert.Len(t, wf.TranscriptCopy(), 7)
}

func TestWorkflowTerminatedSessionIsIdempotent(t *testing.T) {
	fake := &fakeCollab{score: 1.0}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	ctx := context.Background()
	for _, reply := range []string{"", "a", "b", "c"} {
		_, err := wf.ProcessTurn(ctx, reply)
		require.NoError(t, err)
	}
	require.True(t, wf.Status().Terminated)

	turnsBefore := len(wf.TranscriptCopy())
	stepBefore := wf.Step()

	res, err := wf.ProcessTurn(ctx, "are you still there?")
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	assert.Equal(t, closingCompleted, res.Response)
	assert.Equal(t, pkg.TerminationCompleted, res.Reason)
	assert.False(t, res.Advanced)
	assert.Equal(t, stepBefore, res.Step)
	assert.Equal(t, stepBefore, wf.Step())
	assert.Len(t, wf.TranscriptCopy(), turnsBefore)
}

func TestWorkflowBudgetExhaustion(t *testing.T) {
	fake := &fakeCollab{score: 0.0}
	wf := newTestWorkflow(t, fake, Config{MaxSteps: 2}, smallCatalog())

	ctx := context.Background()
	res, err := wf.ProcessTurn(ctx, "")
	require.NoError(t, err)
	require.False(t, res.Terminal)

	res, err = wf.ProcessTurn(ctx, "my head hurts")
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	assert.Equal(t, closingBudget, res.Response)
	assert.Equal(t, pkg.TerminationBudgetExhausted, res.Reason)
	assert.Equal(t, pkg.TerminationBudgetExhausted, wf.Status().Reason)
}

func TestWorkflowAssessorFailureKeepsScores(t *testing.T) {
	fake := &fakeCollab{assessErr: errors.New("model unavailable")}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	ctx := context.Background()
	_, err := wf.ProcessTurn(ctx, "")
	require.NoError(t, err)

	res, err := wf.ProcessTurn(ctx, "my head hurts")
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.NotEmpty(t, res.Response)
	assert.Equal(t, 0.0, wf.Status().Scores[pkg.PhaseTriage]["dept"])
	assert.Empty(t, wf.ScoreHistory())
}

func TestWorkflowQuestionFailureUsesFallback(t *testing.T) {
	fake := &fakeCollab{score: 0.0, questionErr: errors.New("model unavailable")}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	res, err := wf.ProcessTurn(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.Equal(t, FallbackQuestion, res.Response)
}

func TestWorkflowContextExpiryIsResumable(t *testing.T) {
	fake := &fakeCollab{score: 0.0}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	_, err := wf.ProcessTurn(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, wf.Step())

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := wf.ProcessTurn(expired, "my head hurts")
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.False(t, res.Advanced)
	assert.Equal(t, TimeoutResponse, res.Response)
	assert.Equal(t, 1, res.Step)
	assert.Equal(t, 1, wf.Step())
	assert.False(t, wf.Status().Terminated)

	// The aborted turn leaves no trace, so the retry does not duplicate the
	// patient's utterance in the transcript.
	assert.Len(t, wf.TranscriptCopy(), 1)

	res, err = wf.ProcessTurn(context.Background(), "my head hurts")
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.NotEqual(t, TimeoutResponse, res.Response)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, 2, wf.Step())

	var patientTurns int
	for _, turn := range wf.TranscriptCopy() {
		if turn.Role == pkg.RolePatient && turn.Text == "my head hurts" {
			patientTurns++
		}
	}
	assert.Equal(t, 1, patientTurns)
}

func TestWorkflowConcurrentTurnsGetDistinctSteps(t *testing.T) {
	fake := &fakeCollab{score: 0.0}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	_, err := wf.ProcessTurn(context.Background(), "")
	require.NoError(t, err)

	// Two racing requests serialise on the session lock; each result must
	// carry the step of its own turn, not whatever the counter reads later.
	const racers = 4
	steps := make([]int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := wf.ProcessTurn(context.Background(), fmt.Sprintf("answer %d", i))
			assert.NoError(t, err)
			steps[i] = res.Step
		}(i)
	}
	wg.Wait()

	sort.Ints(steps)
	assert.Equal(t, []int{2, 3, 4, 5}, steps)
}

func TestWorkflowPhaseWithoutTasksIsASessionFault(t *testing.T) {
	catalog := NewCatalog([]pkg.Phase{pkg.PhaseTriage}, nil)
	fake := &fakeCollab{score: 1.0}
	wf := newTestWorkflow(t, fake, Config{}, catalog)

	res, err := wf.ProcessTurn(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionFault)
	assert.True(t, res.Terminal)
	assert.Equal(t, FaultResponse, res.Response)
	assert.Equal(t, pkg.TerminationSessionFault, res.Reason)
	assert.Equal(t, pkg.TerminationSessionFault, wf.Status().Reason)

	// The fault is terminal, not repeatable: later calls return the cached
	// closing without the error.
	res, err = wf.ProcessTurn(context.Background(), "hello?")
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	assert.Equal(t, FaultResponse, res.Response)
}

func TestWorkflowTriageFailureIsAbsorbed(t *testing.T) {
	fake := &fakeCollab{score: 1.0, triageErr: errors.New("model unavailable")}
	wf := newTestWorkflow(t, fake, Config{}, smallCatalog())

	ctx := context.Background()
	var res TurnResult
	var err error
	for _, reply := range []string{"", "a", "b", "c"} {
		res, err = wf.ProcessTurn(ctx, reply)
		require.NoError(t, err)
	}
	assert.True(t, res.Terminal)
	assert.Equal(t, 1, fake.triageCalls)
	assert.Nil(t, wf.Status().Triage)
}
