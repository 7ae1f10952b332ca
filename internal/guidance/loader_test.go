package guidance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGuidanceFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInquiryGuidanceLookup(t *testing.T) {
	dir := t.TempDir()
	writeGuidanceFile(t, dir, "department_inquiry_guidance.json", `{
		"Internal Medicine-Cardiology": "Ask about chest pain character and exertion.",
		"Surgery": "Ask about trauma and prior operations."
	}`)
	loader := NewLoader(dir, nil)

	assert.Equal(t, "Ask about chest pain character and exertion.",
		loader.InquiryGuidance("Internal Medicine-Cardiology"))

	// Unknown sub-department falls back to the primary part.
	assert.Equal(t, "Ask about trauma and prior operations.",
		loader.InquiryGuidance("Surgery-Orthopedics"))

	assert.Empty(t, loader.InquiryGuidance("Dermatology"))
	assert.Empty(t, loader.InquiryGuidance(""))
}

func TestInquiryGuidanceMissingFile(t *testing.T) {
	loader := NewLoader(t.TempDir(), nil)
	assert.Empty(t, loader.InquiryGuidance("Surgery"))
}

func TestComparisonGuidanceCombinesPairAndPrimaryRules(t *testing.T) {
	dir := t.TempDir()
	writeGuidanceFile(t, dir, "department_comparison_guidance.json", `{
		"Cardiology|Gastroenterology": {
			"description": "Chest pain: cardiac vs digestive",
			"rules": ["Exertional pain points to Cardiology.", "Pain after meals points to Gastroenterology."]
		},
		"Internal Medicine": {
			"description": "",
			"rules": ["Prefer Internal Medicine for non-surgical presentations."]
		}
	}`)
	loader := NewLoader(dir, nil)

	out := loader.ComparisonGuidance("Internal Medicine-Cardiology", "Internal Medicine-Gastroenterology")
	assert.Contains(t, out, "Chest pain: cardiac vs digestive")
	assert.Contains(t, out, "Exertional pain points to Cardiology.")
	assert.Contains(t, out, "Internal Medicine selection guidance")
	assert.Contains(t, out, "Prefer Internal Medicine for non-surgical presentations.")
}

func TestComparisonGuidanceEmptyInputs(t *testing.T) {
	loader := NewLoader(t.TempDir(), nil)
	assert.Empty(t, loader.ComparisonGuidance("", "Surgery"))
	assert.Empty(t, loader.ComparisonGuidance("Surgery", ""))
}

func TestLoaderReloadsWhenFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeGuidanceFile(t, dir, "department_inquiry_guidance.json",
		`{"Surgery": "old guidance"}`)
	loader := NewLoader(dir, nil)

	assert.Equal(t, "old guidance", loader.InquiryGuidance("Surgery"))

	require.NoError(t, os.WriteFile(path, []byte(`{"Surgery": "new guidance"}`), 0o644))
	// Guarantee a distinct mod time even on coarse-grained filesystems.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Equal(t, "new guidance", loader.InquiryGuidance("Surgery"))
}

func TestLoaderCachesUntouchedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeGuidanceFile(t, dir, "department_inquiry_guidance.json",
		`{"Surgery": "cached guidance"}`)
	loader := NewLoader(dir, nil)
	require.Equal(t, "cached guidance", loader.InquiryGuidance("Surgery"))

	// Same mod time, different bytes: the cached parse must survive.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"Surgery": "sneaky rewrite"}`), 0o644))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	assert.Equal(t, "cached guidance", loader.InquiryGuidance("Surgery"))
}

func TestWithFilesOverride(t *testing.T) {
	dir := t.TempDir()
	writeGuidanceFile(t, dir, "inquiry.json", `{"Surgery": "custom file guidance"}`)
	loader := NewLoader(dir, nil, WithFiles("inquiry.json", "comparison.json"))

	assert.Equal(t, "custom file guidance", loader.InquiryGuidance("Surgery"))
}
