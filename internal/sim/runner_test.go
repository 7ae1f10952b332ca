package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediagnosis/internal/core"
	"prediagnosis/pkg"
)

type passiveCollab struct{}

func (passiveCollab) Assess(ctx context.Context, tail []pkg.ConversationTurn, phase pkg.Phase, pending []core.Task) (core.Assessment, error) {
	if len(pending) == 0 {
		return core.Assessment{}, fmt.Errorf("no pending tasks in %s", phase)
	}
	return core.Assessment{TaskName: pending[0].Name, Score: 0.1}, nil
}

func (passiveCollab) Update(ctx context.Context, transcript []pkg.ConversationTurn, prior pkg.ClinicalSummary) (pkg.ClinicalSummary, error) {
	return prior, nil
}

func (passiveCollab) Generate(ctx context.Context, task core.Task, guidance string, summary pkg.ClinicalSummary) (string, error) {
	return "Tell me about your " + task.Name + ".", nil
}

func newBudgetedWorkflow(maxSteps int) *core.Workflow {
	collab := passiveCollab{}
	return core.NewWorkflow("sim-session", core.DefaultCatalog(), core.Deps{
		Assessor: collab, Updater: collab, Questions: collab,
	}, core.Config{MaxSteps: maxSteps}, nil)
}

func TestRunnerDrivesInterviewToBudget(t *testing.T) {
	dir := t.TempDir()
	recorder, err := NewRecorder(dir, "sim-session")
	require.NoError(t, err)
	defer recorder.Close()

	runner := &Runner{
		Workflow:  newBudgetedWorkflow(3),
		Collector: &ScriptedPatient{Answers: []string{"my stomach hurts", "since yesterday"}},
		Recorder:  recorder,
	}
	status, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, status.Terminated)
	assert.Equal(t, pkg.TerminationBudgetExhausted, status.Reason)
	assert.Equal(t, 3, status.Step)
}

func TestRunnerWritesEventLog(t *testing.T) {
	dir := t.TempDir()
	recorder, err := NewRecorder(dir, "sim-session")
	require.NoError(t, err)

	runner := &Runner{
		Workflow:  newBudgetedWorkflow(2),
		Collector: &ScriptedPatient{Answers: []string{"my stomach hurts"}},
		Recorder:  recorder,
	}
	_, err = runner.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, recorder.Close())

	data, err := os.ReadFile(recorder.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "step", first["event"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "final_status", last["event"])
}

func TestRunnerReturnsPartialStatusOnQuit(t *testing.T) {
	runner := &Runner{
		Workflow:  newBudgetedWorkflow(10),
		Collector: &InteractivePatient{In: strings.NewReader(":q\n"), Out: &strings.Builder{}},
	}
	status, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuit)
	assert.False(t, status.Terminated)
	assert.Equal(t, 1, status.Step)
}
