package sim

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeHistory(t *testing.T) {
	t.Run("no samples", func(t *testing.T) {
		s := SummarizeHistory(NewImmuneCell("i", nil, false))
		assert.Equal(t, HistorySummary{ID: "i", Kind: KindImmune}, s)
	})
	t.Run("single sample", func(t *testing.T) {
		c := NewMetabolicCell("m", nil, 4, 1)
		c.record(1, 4, "")
		s := SummarizeHistory(c)
		assert.Equal(t, 1, s.Samples)
		assert.Equal(t, 4.0, s.Mean)
		assert.Equal(t, 0.0, s.StdDev)
		assert.Equal(t, 4.0, s.Last)
	})
	t.Run("several samples", func(t *testing.T) {
		c := NewMetabolicCell("m", nil, 0, 1)
		for i, v := range []float64{3, 1, 2} {
			c.record(i+1, v, "")
		}
		s := SummarizeHistory(c)
		assert.Equal(t, 3, s.Samples)
		assert.InDelta(t, 2.0, s.Mean, 1e-12)
		assert.InDelta(t, 1.0, s.StdDev, 1e-12)
		assert.Equal(t, 1.0, s.Min)
		assert.Equal(t, 3.0, s.Max)
		assert.Equal(t, 2.0, s.Last)
		assert.Equal(t, []float64{3, 1, 2}, HistoryValues(c))
	})
}

func TestMetrics_Print(t *testing.T) {
	// GIVEN a spiking organoid simulated for three steps
	org := spikingOrganoid(2, constModel(0.6))
	m := NewMetrics()
	require.NoError(t, NewScheduler(SchedulerConfig{}, org, nil, SchedulerOptions{Metrics: m}).Simulate(context.Background(), 3))

	// WHEN printed
	var buf bytes.Buffer
	m.Print(&buf, org)

	// THEN counters and per-cell summaries appear
	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Agent Updates        : 6")
	assert.Contains(t, out, "Spikes               : 2")
	assert.Contains(t, out, "Updates per Step     : 2.00")
	assert.Contains(t, out, "=== Cell Histories ===")
	assert.Contains(t, out, "cell_1")
}

func TestMetrics_PrintWithoutCells(t *testing.T) {
	var buf bytes.Buffer
	NewMetrics().Print(&buf, NewOrganoid("empty", testEnv(1)))
	assert.NotContains(t, buf.String(), "Cell Histories")
	assert.NotContains(t, buf.String(), "Updates per Step")
}

func TestCountSpikes(t *testing.T) {
	org := spikingOrganoid(3, constModel(1.0))
	require.NoError(t, org.AddAgent(NewImmuneCell("immune", nil, false)))
	for _, c := range org.Cells() {
		if n, ok := c.(*SpikingNeuronCell); ok {
			n.Depolarize(1)
			n.fire()
		}
	}
	assert.Equal(t, 3, CountSpikes(org))
}

func TestSnapshot(t *testing.T) {
	// GIVEN a two-cell organoid where only cell_0 updated
	org := spikingOrganoid(2, constModel(0.2))
	c0 := org.Cells()[0].(*SpikingNeuronCell)
	c0.Depolarize(0.2)

	// WHEN a snapshot is taken
	snap := Snapshot(org, 3, 10, map[AgentID]bool{"cell_0": true})

	// THEN it carries the step, states and update flags, with copied positions
	assert.Equal(t, 3, snap.Step)
	assert.Equal(t, 10, snap.Steps)
	require.Len(t, snap.Cells, 2)
	assert.Equal(t, CellState{ID: "cell_0", Kind: KindSpikingNeuron, Value: 0.2, Position: []float64{0, 0, 0}, Updated: true}, snap.Cells[0])
	assert.False(t, snap.Cells[1].Updated)

	snap.Cells[0].Position[0] = 5
	assert.Equal(t, 0.0, c0.Position()[0])
}
