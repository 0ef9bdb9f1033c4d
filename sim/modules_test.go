package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMLModule_CapabilityMismatch(t *testing.T) {
	// GIVEN a spiking module attached to an immune cell
	c := NewImmuneCell("i", nil, false)
	m := NewSpikingNeuronModule(constModel(1))

	// WHEN it runs
	err := m.Run(context.Background(), c)

	// THEN it reports the missing capability
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not excitable")
}

func TestMLModule_NonCellAgent(t *testing.T) {
	m := NewImmuneResponseModule(constModel(1))
	_, err := m.Infer(context.Background(), NewAgent("a", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need a Cell")
}

func TestMLModule_InputShapeMismatch(t *testing.T) {
	model := constModel(1)
	model.Shape = []int{2}
	c := NewImmuneCell("i", nil, false)

	err := NewImmuneResponseModule(model).Run(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects shape")
}

func TestMLModule_EmptyPrediction(t *testing.T) {
	c := NewImmuneCell("i", nil, false)
	err := NewImmuneResponseModule(constModel()).Run(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty prediction")
}

func TestGrowthShrinkageModule_ThresholdDecidesDirection(t *testing.T) {
	tests := []struct {
		name       string
		prediction float64
		want       float64
	}{
		{"above threshold grows", 0.7, 1.1},
		{"at threshold shrinks", 0.5, 0.9},
		{"below threshold shrinks", 0.2, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGrowthShrinkageCell("g", nil, 1.0)
			c.AddModule(NewGrowthShrinkageModule(constModel(tt.prediction), 0.1, 0.05, 0.5, nil))
			require.NoError(t, c.Update(context.Background(), 1))
			assert.InDelta(t, tt.want, c.Volume(), 1e-12)
		})
	}
}

func TestGrowthShrinkageModule_VarianceBoundsChange(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		c := NewGrowthShrinkageCell("g", nil, 1.0)
		m := NewGrowthShrinkageModule(constModel(1), 0.1, 0.05, 0.5, rng)
		require.NoError(t, m.Run(context.Background(), c))
		assert.GreaterOrEqual(t, c.Volume(), 1.05)
		assert.LessOrEqual(t, c.Volume(), 1.15)
	}
}

func TestStateIndex(t *testing.T) {
	tests := []struct {
		name string
		p    []float64
		n    int
		want int
	}{
		{"argmax", []float64{0.1, 0.7, 0.2}, 3, 1},
		{"argmax ignores outputs beyond states", []float64{0.1, 0.2, 0.9}, 2, 1},
		{"bucket low", []float64{0.2}, 2, 0},
		{"bucket high", []float64{0.99}, 2, 1},
		{"bucket clamps one", []float64{1.0}, 3, 2},
		{"bucket clamps negative", []float64{-0.4}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateIndex(tt.p, tt.n))
		})
	}
}

func TestDifferentiationModule(t *testing.T) {
	states := []string{"stem", "neuron", "glia"}
	c := NewDifferentiatingCell("d", nil, "stem")
	require.NoError(t, NewDifferentiationModule(constModel(0.1, 0.2, 0.7), states).Run(context.Background(), c))
	assert.Equal(t, "glia", c.State())
	assert.Equal(t, 2.0, c.Value())

	err := NewDifferentiationModule(constModel(0.5), nil).Run(context.Background(), c)
	assert.ErrorContains(t, err, "no states")
}

func TestChemotaxisModule_Movement(t *testing.T) {
	t.Run("one output per dimension", func(t *testing.T) {
		c := NewChemotacticCell("c", []float64{0, 0, 0})
		require.NoError(t, NewChemotaxisModule(constModel(1, -2, 0.5), nil).Run(context.Background(), c))
		assert.Equal(t, []float64{1, -2, 0.5}, c.Position())
		assert.Equal(t, 0.0, c.Gradient(), "no field leaves the reading untouched")
	})
	t.Run("single output moves every axis", func(t *testing.T) {
		c := NewChemotacticCell("c", []float64{1, 1})
		require.NoError(t, NewChemotaxisModule(constModel(0.5), nil).Run(context.Background(), c))
		assert.Equal(t, []float64{1.5, 1.5}, c.Position())
	})
	t.Run("field refreshes gradient", func(t *testing.T) {
		env := NewChemicalGradientEnvironment(nil, 2, 10, nil)
		c := NewChemotacticCell("c", []float64{0, 0})
		require.NoError(t, NewChemotaxisModule(constModel(3, 4), env).Run(context.Background(), c))
		assert.InDelta(t, 5.0, c.Gradient(), 1e-12)
	})
}

func TestImmuneResponseModule_Threshold(t *testing.T) {
	c := NewImmuneCell("i", nil, false)
	require.NoError(t, NewImmuneResponseModule(constModel(0.51)).Run(context.Background(), c))
	assert.True(t, c.Active())

	require.NoError(t, NewImmuneResponseModule(constModel(ImmuneActivationThreshold)).Run(context.Background(), c))
	assert.False(t, c.Active())
}

func TestMetabolicModule_ScalesByRate(t *testing.T) {
	tests := []struct {
		name       string
		rate       float64
		prediction float64
		want       float64
	}{
		{"unit rate scales by prediction", 1, 0.8, 80},
		{"half rate halves the change", 0.5, 0.8, 90},
		{"zero rate keeps energy", 0, 0.1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMetabolicCell("m", nil, 100, tt.rate)
			require.NoError(t, NewMetabolicModule(constModel(tt.prediction)).Run(context.Background(), c))
			assert.InDelta(t, tt.want, c.Energy(), 1e-9)
		})
	}
}

func TestGeneRegulationModule_FactorRange(t *testing.T) {
	c := NewGeneRegulationCell("g", nil, 2)
	require.NoError(t, NewGeneRegulationModule(constModel(0.25), 0, nil).Run(context.Background(), c))
	assert.InDelta(t, 1.5, c.ExpressionLevel(), 1e-12)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		c := NewGeneRegulationCell("g", nil, 1)
		require.NoError(t, NewGeneRegulationModule(constModel(0.5), 0.1, rng).Run(context.Background(), c))
		assert.InDelta(t, 1.0, c.ExpressionLevel(), 0.1)
	}
}

func TestPlasticityModule_HebbianRule(t *testing.T) {
	tests := []struct {
		name      string
		preDrive  float64
		postDrive float64
		want      float64
	}{
		{"coincident firing strengthens", 1, 1, 0.55},
		{"pre only weakens", 1, 0, 0.45},
		{"post only unchanged", 0, 1, 0.5},
		{"silent unchanged", 0, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre := NewSynapticPlasticityCell("pre", nil, 1.0)
			post := NewSynapticPlasticityCell("post", nil, 1.0)
			pre.Depolarize(tt.preDrive)
			post.Depolarize(tt.postDrive)
			s := NewSynapse(pre, post)

			require.NoError(t, NewPlasticityModule(s, 0.1).Run(context.Background(), post))
			assert.InDelta(t, tt.want, s.Weight, 1e-12)
		})
	}
}

func TestOrganoid_ModelsDistinctInFirstUseOrder(t *testing.T) {
	a, b := constModel(1), constModel(2)
	org := NewOrganoid("mixed", testEnv(1))
	for i, m := range []Model{a, b, a} {
		c := NewImmuneCell(CellID(i), nil, false)
		c.AddModule(NewImmuneResponseModule(m))
		require.NoError(t, org.AddAgent(c))
	}

	models := org.Models()
	require.Len(t, models, 2)
	assert.Same(t, a, models[0])
	assert.Same(t, b, models[1])
}
