package sim

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedPatientRepeatsLastAnswer(t *testing.T) {
	p := &ScriptedPatient{Answers: []string{"first", "second"}}
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second", "second"} {
		got, err := p.Collect(ctx, "question?", false)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestScriptedPatientWithoutAnswers(t *testing.T) {
	p := &ScriptedPatient{}
	got, err := p.Collect(context.Background(), "question?", true)
	require.NoError(t, err)
	assert.Equal(t, "I am not sure.", got)
}

func TestInteractivePatientReadsAnswer(t *testing.T) {
	var out strings.Builder
	p := &InteractivePatient{In: strings.NewReader("my back hurts\n"), Out: &out}

	got, err := p.Collect(context.Background(), "What brings you in?", true)
	require.NoError(t, err)
	assert.Equal(t, "my back hurts", got)
	assert.Contains(t, out.String(), "What brings you in?")
}

func TestInteractivePatientQuitCommands(t *testing.T) {
	for _, cmd := range []string{":q", ":quit", ":exit"} {
		p := &InteractivePatient{In: strings.NewReader(cmd + "\n"), Out: &strings.Builder{}}
		_, err := p.Collect(context.Background(), "question?", false)
		assert.ErrorIs(t, err, ErrQuit, cmd)
	}
}

func TestInteractivePatientEmptyLineBecomesNoDescription(t *testing.T) {
	p := &InteractivePatient{In: strings.NewReader("\n"), Out: &strings.Builder{}}
	got, err := p.Collect(context.Background(), "question?", false)
	require.NoError(t, err)
	assert.Equal(t, "The patient gave no description.", got)
}

func TestInteractivePatientEOFQuits(t *testing.T) {
	p := &InteractivePatient{In: strings.NewReader(""), Out: &strings.Builder{}}
	_, err := p.Collect(context.Background(), "question?", false)
	assert.ErrorIs(t, err, ErrQuit)
}

func TestLoadCases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"case_id": "c1", "chief_complaint": "headache", "basic_info": "male, 34"},
		{"case_id": "c2", "chief_complaint": "back pain", "basic_info": "female, 51"}
	]`), 0o644))

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "headache", cases[0].ChiefComplaint)

	c, err := LoadCase(path, 1)
	require.NoError(t, err)
	assert.Equal(t, "c2", c.CaseID)

	_, err = LoadCase(path, 5)
	assert.ErrorContains(t, err, "out of range")
}

func TestLoadCasesEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	_, err := LoadCases(path)
	assert.ErrorContains(t, err, "no cases")
}
