// Package sim drives whole interviews against a simulated or interactive
// patient, for the CLI runner and research harnesses.
package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"prediagnosis/pkg"
)

// LoadCases reads a JSON array of patient cases from disk.
func LoadCases(path string) ([]pkg.PatientCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var cases []pkg.PatientCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("dataset %s contains no cases", path)
	}
	return cases, nil
}

// LoadCase reads one case by index.
func LoadCase(path string, index int) (pkg.PatientCase, error) {
	cases, err := LoadCases(path)
	if err != nil {
		return pkg.PatientCase{}, err
	}
	if index < 0 || index >= len(cases) {
		return pkg.PatientCase{}, fmt.Errorf("case index %d out of range (dataset has %d cases)", index, len(cases))
	}
	return cases[index], nil
}
