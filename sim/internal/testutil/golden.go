// Package testutil provides shared test infrastructure for the organoid simulator.
// It holds the golden history dataset types and assertion helpers used by the
// sim/ test packages. It must not import sim so in-package tests can use it.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldenhistories.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one scenario run and the history it must reproduce.
type GoldenTestCase struct {
	// Scenario is a scenario file path relative to the repository root.
	Scenario string `json:"scenario"`
	// Cell is the ID of the cell whose history is compared.
	Cell    string        `json:"cell"`
	Metrics GoldenMetrics `json:"metrics"`
	Values  []float64     `json:"values"`
	Labels  []string      `json:"labels,omitempty"`
}

// GoldenMetrics represents the expected counters of a golden run.
// Wall time is not deterministic and is not compared.
type GoldenMetrics struct {
	Steps          int `json:"steps"`
	AgentUpdates   int `json:"agent_updates"`
	SkippedUpdates int `json:"skipped_updates"`
	Spikes         int `json:"spikes"`
}

// RepoPath resolves a repository-relative path from this source file:
// sim/internal/testutil/ → repository root.
func RepoPath(t *testing.T, rel string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", filepath.FromSlash(rel))
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	data, err := os.ReadFile(RepoPath(t, "testdata/goldenhistories.json"))
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
