package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/organoid-sim/sim"
	"github.com/inference-sim/organoid-sim/sim/store"
)

var spikingScenario = filepath.Join("..", "testdata", "scenarios", "spiking.yaml")

// parseRunFlags binds fresh run flags, parses args into the package flag
// variables and restores their defaults when the test ends.
func parseRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "run"}
	addRunFlags(c)
	require.NoError(t, c.ParseFlags(args))
	t.Cleanup(func() { addRunFlags(&cobra.Command{}) })
	return c
}

func TestResolveScenario_UnsetFlagsKeepScenarioValues(t *testing.T) {
	// GIVEN only --scenario
	c := parseRunFlags(t, "--scenario", spikingScenario)

	// WHEN resolved
	sc, err := resolveScenario(c)

	// THEN the file's seed and steps win over flag defaults
	require.NoError(t, err)
	assert.Equal(t, int64(7), sc.Seed)
	assert.Equal(t, 8, sc.Steps)
	assert.Equal(t, "", sc.Scheduler.Policy)
}

func TestResolveScenario_AppliesOverrides(t *testing.T) {
	c := parseRunFlags(t, "--scenario", spikingScenario,
		"--seed", "99", "--steps", "3", "--scheduler", "parallel", "--workers", "2", "--trace", "updates")

	sc, err := resolveScenario(c)
	require.NoError(t, err)
	assert.Equal(t, int64(99), sc.Seed)
	assert.Equal(t, 3, sc.Steps)
	assert.Equal(t, sim.PolicyParallel, sc.Scheduler.Policy)
	assert.Equal(t, 2, sc.Scheduler.Workers)
	assert.Equal(t, "updates", sc.Trace)
}

func TestResolveScenario_Preset(t *testing.T) {
	c := parseRunFlags(t, "--preset", "immune", "--defaults-filepath", filepath.Join("..", "defaults.yaml"))

	sc, err := resolveScenario(c)
	require.NoError(t, err)
	assert.Equal(t, string(sim.KindImmune), sc.Organoid.Kind)
}

func TestResolveScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"nothing selected", nil, "required"},
		{"both selected", []string{"--scenario", spikingScenario, "--preset", "immune"}, "mutually exclusive"},
		{"bad scheduler override", []string{"--scenario", spikingScenario, "--scheduler", "lottery"}, "invalid scenario"},
		{"bad scenario file", []string{"--scenario", filepath.Join("..", "testdata", "scenarios", "bad_policy.yaml")}, "lottery"},
		{"negative steps", []string{"--scenario", spikingScenario, "--steps", "-1"}, "steps"},
		{"missing file", []string{"--scenario", "nope.yaml"}, "reading scenario"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parseRunFlags(t, tt.args...)
			_, err := resolveScenario(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecuteRun_WritesEveryOutput(t *testing.T) {
	// GIVEN the spiking scenario with every output enabled
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "history.csv")
	jsonPath := filepath.Join(dir, "history.json")
	db := filepath.Join(dir, "runs.db")
	dot := filepath.Join(dir, "organoid.dot")
	c := parseRunFlags(t, "--scenario", spikingScenario, "--trace", "updates",
		"--history-csv", csvPath, "--history-json", jsonPath, "--db", db, "--dot", dot)
	sc, err := resolveScenario(c)
	require.NoError(t, err)

	// WHEN the run executes
	var out bytes.Buffer
	require.NoError(t, executeRun(context.Background(), sc, &out))

	// THEN metrics and trace summary are printed
	assert.Contains(t, out.String(), "=== Simulation Metrics ===")
	assert.Contains(t, out.String(), "Agent Updates        : 32")
	assert.Contains(t, out.String(), "Spikes               : 16")
	assert.Contains(t, out.String(), "=== Update Trace ===")

	// AND every output file is written
	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	assert.Equal(t, "cell_id,kind,step,value,label", lines[0])
	assert.Len(t, lines, 1+4*8)

	jsonData, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"organoid": "spiking-neuron"`)

	dotData, err := os.ReadFile(dot)
	require.NoError(t, err)
	assert.Contains(t, string(dotData), "digraph organoid")

	s, err := store.NewSQLiteStore(db)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "spiking-smoke", runs[0].Name)
	assert.Equal(t, int64(7), runs[0].Seed)
	assert.Equal(t, sim.PolicySequential, runs[0].Scheduler)
	assert.Equal(t, 16, runs[0].Spikes)
}

func TestExecuteRun_CancelledContext(t *testing.T) {
	parseRunFlags(t)
	sc, err := sim.LoadScenario(spikingScenario)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	assert.ErrorIs(t, executeRun(ctx, sc, &out), context.Canceled)
	assert.Empty(t, out.String())
}

func TestExecuteRun_SeedDeterminesHistory(t *testing.T) {
	// GIVEN the growth preset, whose placement and growth noise depend on the seed
	defaults := filepath.Join("..", "defaults.yaml")
	history := func(seedArg string) string {
		path := filepath.Join(t.TempDir(), "h.csv")
		c := parseRunFlags(t, "--preset", "growth-shrinkage", "--defaults-filepath", defaults,
			"--seed", seedArg, "--steps", "5", "--history-csv", path)
		sc, err := resolveScenario(c)
		require.NoError(t, err)
		require.NoError(t, executeRun(context.Background(), sc, &bytes.Buffer{}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}

	// THEN the same seed reproduces the history and another seed changes it
	first := history("123")
	assert.Equal(t, first, history("123"))
	assert.NotEqual(t, first, history("124"))
}
