package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediagnosis/pkg"
)

func TestScoreBoardDefaults(t *testing.T) {
	board := NewScoreBoard(DefaultCatalog(), 0)
	assert.Equal(t, DefaultCompletionThreshold, board.Threshold())

	scores := board.GetScores(pkg.PhaseTriage)
	require.Len(t, scores, 2)
	assert.Equal(t, 0.0, scores["primary_department"])
	assert.Equal(t, 0.0, scores["secondary_department"])
}

func TestScoreBoardSetScoreClamps(t *testing.T) {
	board := NewScoreBoard(DefaultCatalog(), 0.85)

	board.SetScore(pkg.PhaseTriage, "primary_department", 1.7)
	assert.Equal(t, 1.0, board.GetScores(pkg.PhaseTriage)["primary_department"])

	board.SetScore(pkg.PhaseTriage, "primary_department", -0.3)
	assert.Equal(t, 0.0, board.GetScores(pkg.PhaseTriage)["primary_department"])
}

func TestScoreBoardCompletion(t *testing.T) {
	board := NewScoreBoard(DefaultCatalog(), 0.85)

	board.SetScore(pkg.PhaseTriage, "primary_department", 0.85)
	assert.True(t, board.IsTaskComplete(pkg.PhaseTriage, "primary_department"))
	assert.False(t, board.AreAllComplete(pkg.PhaseTriage))

	board.SetScore(pkg.PhaseTriage, "secondary_department", 0.9)
	assert.True(t, board.AreAllComplete(pkg.PhaseTriage))
	assert.Empty(t, board.Pending(pkg.PhaseTriage))
}

func TestScoreBoardPendingKeepsCatalogOrder(t *testing.T) {
	board := NewScoreBoard(DefaultCatalog(), 0.85)
	board.SetScore(pkg.PhasePresentIllness, "symptom_character", 0.95)

	pending := board.Pending(pkg.PhasePresentIllness)
	require.Len(t, pending, 4)
	assert.Equal(t, "onset", pending[0].Name)
	assert.Equal(t, "accompanying_symptoms", pending[1].Name)
}

func TestScoreBoardUnknownPhaseNeverComplete(t *testing.T) {
	board := NewScoreBoard(DefaultCatalog(), 0.85)
	assert.False(t, board.AreAllComplete(pkg.Phase("imaging")))
}

func TestScoreBoardHistory(t *testing.T) {
	board := NewScoreBoard(DefaultCatalog(), 0.85)
	board.SetScore(pkg.PhaseTriage, "primary_department", 0.4)
	board.RecordRound(1, pkg.PhaseTriage)
	board.SetScore(pkg.PhaseTriage, "primary_department", 0.9)
	board.RecordRound(2, pkg.PhaseTriage)

	history := board.History()
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Round)
	assert.Equal(t, 0.4, history[0].Scores["primary_department"])
	assert.Equal(t, 0.9, history[1].Scores["primary_department"])
}
