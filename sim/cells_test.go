package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpikingNeuronCell_RecordsBeforeFiring(t *testing.T) {
	// GIVEN a neuron with threshold 1.0 driven by a constant 0.6
	c := NewSpikingNeuronCell("n", []float64{0, 0, 0}, 1.0)
	c.AddModule(NewSpikingNeuronModule(constModel(0.6)))

	// WHEN updated twice
	require.NoError(t, c.Update(context.Background(), 1))
	require.NoError(t, c.Update(context.Background(), 2))

	// THEN the second sample holds the pre-reset potential and the cell fired once
	h := c.History()
	require.Len(t, h, 2)
	assert.InDelta(t, 0.6, h[0].Value, 1e-12)
	assert.InDelta(t, 1.2, h[1].Value, 1e-12)
	assert.Equal(t, 1, c.Spikes())
	assert.Equal(t, 0.0, c.MembranePotential())
	assert.False(t, c.Firing())
}

func TestSpikingNeuronCell_DefaultInputIsTenHalves(t *testing.T) {
	c := NewSpikingNeuronCell("n", nil, 1.0)
	in := InputData(c)
	require.Len(t, in, SpikingDefaultInputSize)
	for _, v := range in {
		assert.Equal(t, 0.5, v)
	}
}

func TestGrowthShrinkageCell_VolumeNeverNegative(t *testing.T) {
	// GIVEN a cell created with a negative volume
	c := NewGrowthShrinkageCell("g", nil, -1)
	assert.Equal(t, 0.0, c.Volume())

	// WHEN it shrinks below zero or grows
	c.Shrink(5)
	assert.Equal(t, 0.0, c.Volume())
	c.Grow(0.3)

	// THEN the volume is clamped at zero and grows from there
	assert.InDelta(t, 0.3, c.Volume(), 1e-12)
	c.Grow(-1)
	assert.Equal(t, 0.0, c.Value())
}

func TestDifferentiatingCell_ValueIsStateIndex(t *testing.T) {
	c := NewDifferentiatingCell("d", nil, "stem")
	assert.Equal(t, "stem", c.Label())
	assert.Equal(t, 0.0, c.Value())

	c.Differentiate(2, "neuron")
	require.NoError(t, c.Update(context.Background(), 1))

	assert.Equal(t, "neuron", c.State())
	assert.Equal(t, []Sample{{Step: 1, Value: 2, Label: "neuron"}}, c.History())
}

func TestChemotacticCell_MoveByIgnoresExtraComponents(t *testing.T) {
	c := NewChemotacticCell("c", []float64{1, 2})
	c.MoveBy([]float64{0.5, -1, 99})
	assert.Equal(t, []float64{1.5, 1}, c.Position())

	c.MoveBy([]float64{1})
	assert.Equal(t, []float64{2.5, 1}, c.Position())
}

func TestNewCell_CopiesPosition(t *testing.T) {
	pos := []float64{1, 2, 3}
	c := NewChemotacticCell("c", pos)
	c.MoveBy([]float64{1, 1, 1})
	assert.Equal(t, []float64{1, 2, 3}, pos)
}

func TestImmuneCell_ValueAndLabelFollowActivation(t *testing.T) {
	c := NewImmuneCell("i", nil, false)
	assert.Equal(t, 0.0, c.Value())
	assert.Equal(t, "inactive", c.Label())

	c.Activate()
	assert.True(t, c.Active())
	assert.Equal(t, 1.0, c.Value())
	assert.Equal(t, "active", c.Label())

	c.Deactivate()
	assert.False(t, c.Active())
}

func TestMetabolicAndGeneRegulationCells_ScaleState(t *testing.T) {
	m := NewMetabolicCell("m", nil, 100, 0.5)
	m.Metabolize(0.9)
	assert.InDelta(t, 90, m.Energy(), 1e-12)
	assert.Equal(t, 0.5, m.MetabolismRate())

	g := NewGeneRegulationCell("g", nil, 2)
	g.RegulateGenes(1.5)
	assert.InDelta(t, 3, g.ExpressionLevel(), 1e-12)
}

func TestSynapticPlasticityCell_TransmitsBeforeFiring(t *testing.T) {
	// GIVEN pre wired to post with the default weight, pre driven above threshold
	pre := NewSynapticPlasticityCell("pre", nil, 1.0)
	post := NewSynapticPlasticityCell("post", nil, 1.0)
	pre.AddSynapse(NewSynapse(pre, post))
	pre.AddModule(NewSpikingNeuronModule(constModel(1.5)))

	// WHEN pre updates
	require.NoError(t, pre.Update(context.Background(), 1))

	// THEN post received the synaptic weight and pre fired
	assert.Equal(t, DefaultSynapseWeight, post.MembranePotential())
	assert.Equal(t, 1, pre.Spikes())
	assert.Equal(t, 0.0, pre.MembranePotential())
	assert.Len(t, pre.Synapses(), 1)
}

func TestSynapse_TransmitOnlyWhenPreFiring(t *testing.T) {
	pre := NewSynapticPlasticityCell("pre", nil, 1.0)
	post := NewSynapticPlasticityCell("post", nil, 1.0)
	s := NewSynapse(pre, post)

	assert.False(t, s.Transmit())
	assert.Equal(t, 0.0, post.MembranePotential())

	pre.Depolarize(1.0)
	assert.True(t, s.Transmit())
	assert.Equal(t, 0.5, post.MembranePotential())
}

func TestBaseAgent_RunsModulesInOrder(t *testing.T) {
	var calls []string
	a := NewAgent("a", []float64{0})
	for _, name := range []string{"first", "second", "third"} {
		name := name
		a.AddModule(moduleFunc(func(context.Context, Agent) error {
			calls = append(calls, name)
			return nil
		}))
	}

	require.NoError(t, a.Update(context.Background(), 1))
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestUpdate_ModuleErrorNamesAgent(t *testing.T) {
	c := NewImmuneCell("cell_7", nil, false)
	c.AddModule(NewImmuneResponseModule(failingModel()))

	err := c.Update(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell_7")
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, c.History(), "a failed update records nothing")
}

func TestCommit_PredictionForPlainModuleFails(t *testing.T) {
	a := NewAgent("a", nil)
	a.AddModule(moduleFunc(func(context.Context, Agent) error { return nil }))

	err := a.Commit(context.Background(), 1, [][]float64{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not staged")
}

func TestInfer_DoesNotMutateAndFeedsCommit(t *testing.T) {
	// GIVEN a neuron with a staged module
	c := NewSpikingNeuronCell("n", nil, 10)
	c.AddModule(NewSpikingNeuronModule(constModel(0.4)))

	// WHEN inference runs
	inferred, err := Infer(context.Background(), c)
	require.NoError(t, err)

	// THEN nothing changed until the prediction is committed
	assert.Equal(t, 0.0, c.MembranePotential())
	assert.Empty(t, c.History())
	require.NoError(t, c.Commit(context.Background(), 1, inferred))
	assert.InDelta(t, 0.4, c.MembranePotential(), 1e-12)
}

func TestInfer_NilWithoutStagedModules(t *testing.T) {
	a := NewAgent("a", nil)
	a.AddModule(moduleFunc(func(context.Context, Agent) error { return nil }))

	inferred, err := Infer(context.Background(), a)
	require.NoError(t, err)
	assert.Nil(t, inferred)
}

func TestInputData_NilInputFuncFallsBackToState(t *testing.T) {
	c := NewMetabolicCell("m", nil, 42, 1)
	c.SetInputFunc(nil)
	assert.Equal(t, []float64{42}, InputData(c))
}

// moduleFunc adapts a function to Module.
type moduleFunc func(ctx context.Context, a Agent) error

func (f moduleFunc) Run(ctx context.Context, a Agent) error { return f(ctx, a) }
