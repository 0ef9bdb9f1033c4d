package sim_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/organoid-sim/sim"
	"github.com/inference-sim/organoid-sim/sim/internal/testutil"
)

// TestGoldenHistories runs every scenario of the golden dataset and compares
// the recorded history of one cell and the run counters.
func TestGoldenHistories(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	require.NotEmpty(t, dataset.Tests)

	for _, tc := range dataset.Tests {
		t.Run(tc.Scenario, func(t *testing.T) {
			sc, err := sim.LoadScenario(testutil.RepoPath(t, tc.Scenario))
			require.NoError(t, err)
			s, err := sc.Build()
			require.NoError(t, err)

			metrics := sim.NewMetrics()
			require.NoError(t, s.NewScheduler(sim.SchedulerOptions{Metrics: metrics}).Simulate(context.Background(), sc.Steps))

			assert.Equal(t, tc.Metrics.Steps, metrics.Steps, "steps")
			assert.Equal(t, tc.Metrics.AgentUpdates, metrics.AgentUpdates, "agent updates")
			assert.Equal(t, tc.Metrics.SkippedUpdates, metrics.SkippedUpdates, "skipped updates")
			assert.Equal(t, tc.Metrics.Spikes, metrics.Spikes, "spikes")

			a, ok := s.Organoid.AgentByID(sim.AgentID(tc.Cell))
			require.True(t, ok, "cell %s", tc.Cell)
			history := a.(sim.Cell).History()
			require.Len(t, history, len(tc.Values))
			for i, want := range tc.Values {
				assert.Equal(t, i+1, history[i].Step)
				testutil.AssertFloat64Equal(t, fmt.Sprintf("value[%d]", i), want, history[i].Value, 1e-9)
				if len(tc.Labels) > 0 {
					assert.Equal(t, tc.Labels[i], history[i].Label)
				}
			}
		})
	}
}

// TestGoldenHistories_RepeatedRunsIdentical verifies a seed reproduces the
// same histories bit for bit.
func TestGoldenHistories_RepeatedRunsIdentical(t *testing.T) {
	run := func() map[sim.AgentID][]sim.Sample {
		sc, err := sim.LoadScenario(testutil.RepoPath(t, "testdata/scenarios/immune.yaml"))
		require.NoError(t, err)
		s, err := sc.Build()
		require.NoError(t, err)
		require.NoError(t, s.NewScheduler(sim.SchedulerOptions{}).Simulate(context.Background(), sc.Steps))
		out := make(map[sim.AgentID][]sim.Sample)
		for _, c := range s.Organoid.Cells() {
			out[c.ID()] = c.History()
		}
		return out
	}
	assert.Equal(t, run(), run())
}
