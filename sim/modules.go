package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Capabilities the ML modules act on. A module fails with an error when the
// agent it is attached to does not implement the capability it needs.
type (
	Growable interface {
		Grow(amount float64)
		Shrink(amount float64)
	}
	Differentiable interface {
		Differentiate(index int, state string)
	}
	Motile interface {
		Position() []float64
		MoveBy(delta []float64)
		SetGradient(g float64)
	}
	Activatable interface {
		Activate()
		Deactivate()
	}
	Metabolizer interface {
		MetabolismRate() float64
		Metabolize(factor float64)
	}
	Regulatable interface {
		RegulateGenes(factor float64)
	}
)

// ModelBound is implemented by modules that delegate to a Model.
type ModelBound interface {
	Model() Model
}

// mlModule is the collect-input, predict half shared by every ML module.
type mlModule struct {
	model Model
}

func (m *mlModule) Model() Model { return m.model }

// Infer collects the cell's input data and runs the model on it.
func (m *mlModule) Infer(ctx context.Context, a Agent) ([]float64, error) {
	c, ok := a.(Cell)
	if !ok {
		return nil, fmt.Errorf("ML modules need a Cell, got %T", a)
	}
	return predict(ctx, m.model, InputData(c))
}

func runStaged(ctx context.Context, s StagedModule, a Agent) error {
	p, err := s.Infer(ctx, a)
	if err != nil {
		return err
	}
	return s.Apply(a, p)
}

func capabilityError(a Agent, want string) error {
	return fmt.Errorf("agent %s (%T) is not %s", a.ID(), a, want)
}

// uniform returns a draw from U(-spread, spread), or 0 without an rng or spread.
func uniform(rng *rand.Rand, spread float64) float64 {
	if rng == nil || spread <= 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * spread
}

// === SpikingNeuronModule ===

// SpikingNeuronModule adds the model's first output to the membrane potential.
type SpikingNeuronModule struct{ mlModule }

func NewSpikingNeuronModule(model Model) *SpikingNeuronModule {
	return &SpikingNeuronModule{mlModule{model}}
}

func (m *SpikingNeuronModule) Name() string { return "SpikingNeuronModule" }

func (m *SpikingNeuronModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *SpikingNeuronModule) Apply(a Agent, p []float64) error {
	ex, ok := a.(Excitable)
	if !ok {
		return capabilityError(a, "excitable")
	}
	ex.Depolarize(p[0])
	return nil
}

// === GrowthShrinkageModule ===

// GrowthShrinkageModule grows the cell when the prediction exceeds
// PredictionThreshold and shrinks it otherwise, by GrowthAmount +/- GrowthVariance.
type GrowthShrinkageModule struct {
	mlModule
	GrowthAmount        float64
	GrowthVariance      float64
	PredictionThreshold float64
	rng                 *rand.Rand
}

func NewGrowthShrinkageModule(model Model, amount, variance, threshold float64, rng *rand.Rand) *GrowthShrinkageModule {
	return &GrowthShrinkageModule{
		mlModule:            mlModule{model},
		GrowthAmount:        amount,
		GrowthVariance:      variance,
		PredictionThreshold: threshold,
		rng:                 rng,
	}
}

func (m *GrowthShrinkageModule) Name() string { return "GrowthShrinkageModule" }

func (m *GrowthShrinkageModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *GrowthShrinkageModule) Apply(a Agent, p []float64) error {
	g, ok := a.(Growable)
	if !ok {
		return capabilityError(a, "growable")
	}
	change := m.GrowthAmount + uniform(m.rng, m.GrowthVariance)
	if p[0] > m.PredictionThreshold {
		g.Grow(change)
	} else {
		g.Shrink(change)
	}
	return nil
}

// === DifferentiationModule ===

// DifferentiationModule maps the prediction onto one of States: the argmax for
// multi-output models, otherwise the bucket floor(p*len(States)).
type DifferentiationModule struct {
	mlModule
	States []string
}

func NewDifferentiationModule(model Model, states []string) *DifferentiationModule {
	return &DifferentiationModule{mlModule: mlModule{model}, States: states}
}

func (m *DifferentiationModule) Name() string { return "DifferentiationModule" }

func (m *DifferentiationModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *DifferentiationModule) Apply(a Agent, p []float64) error {
	d, ok := a.(Differentiable)
	if !ok {
		return capabilityError(a, "differentiable")
	}
	if len(m.States) == 0 {
		return fmt.Errorf("differentiation module has no states")
	}
	idx := StateIndex(p, len(m.States))
	d.Differentiate(idx, m.States[idx])
	return nil
}

// StateIndex picks a state index in [0, n) from a prediction.
func StateIndex(p []float64, n int) int {
	if len(p) > 1 {
		best := 0
		for i := 1; i < len(p) && i < n; i++ {
			if p[i] > p[best] {
				best = i
			}
		}
		return best
	}
	idx := int(math.Floor(p[0] * float64(n)))
	return max(0, min(n-1, idx))
}

// === ChemotaxisModule ===

// ConcentrationField is an environment exposing a scalar field.
type ConcentrationField interface {
	Concentration(position []float64) float64
}

// ChemotaxisModule moves the cell by the prediction: one component per
// dimension when the model provides enough outputs, otherwise p[0] along
// every axis. With a Field, the cell's gradient reading is refreshed afterwards.
type ChemotaxisModule struct {
	mlModule
	Field ConcentrationField
}

func NewChemotaxisModule(model Model, field ConcentrationField) *ChemotaxisModule {
	return &ChemotaxisModule{mlModule: mlModule{model}, Field: field}
}

func (m *ChemotaxisModule) Name() string { return "ChemotaxisModule" }

func (m *ChemotaxisModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *ChemotaxisModule) Apply(a Agent, p []float64) error {
	mo, ok := a.(Motile)
	if !ok {
		return capabilityError(a, "motile")
	}
	dims := len(mo.Position())
	delta := make([]float64, dims)
	for i := range delta {
		if len(p) >= dims {
			delta[i] = p[i]
		} else {
			delta[i] = p[0]
		}
	}
	mo.MoveBy(delta)
	if m.Field != nil {
		mo.SetGradient(m.Field.Concentration(mo.Position()))
	}
	return nil
}

// === ImmuneResponseModule ===

// ImmuneActivationThreshold is the prediction above which an immune cell activates.
const ImmuneActivationThreshold = 0.5

type ImmuneResponseModule struct{ mlModule }

func NewImmuneResponseModule(model Model) *ImmuneResponseModule {
	return &ImmuneResponseModule{mlModule{model}}
}

func (m *ImmuneResponseModule) Name() string { return "ImmuneResponseModule" }

func (m *ImmuneResponseModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *ImmuneResponseModule) Apply(a Agent, p []float64) error {
	c, ok := a.(Activatable)
	if !ok {
		return capabilityError(a, "activatable")
	}
	if p[0] > ImmuneActivationThreshold {
		c.Activate()
	} else {
		c.Deactivate()
	}
	return nil
}

// === MetabolicModule ===

// MetabolicModule scales energy by 1 + rate*(p-1); a rate of 1 scales by p itself.
type MetabolicModule struct{ mlModule }

func NewMetabolicModule(model Model) *MetabolicModule {
	return &MetabolicModule{mlModule{model}}
}

func (m *MetabolicModule) Name() string { return "MetabolicModule" }

func (m *MetabolicModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *MetabolicModule) Apply(a Agent, p []float64) error {
	c, ok := a.(Metabolizer)
	if !ok {
		return capabilityError(a, "a metabolizer")
	}
	c.Metabolize(1 + c.MetabolismRate()*(p[0]-1))
	return nil
}

// === GeneRegulationModule ===

// GeneRegulationModule maps a prediction in [0, 1] onto a regulation factor
// in [0.5, 1.5], jittered by +/- Variance.
type GeneRegulationModule struct {
	mlModule
	Variance float64
	rng      *rand.Rand
}

func NewGeneRegulationModule(model Model, variance float64, rng *rand.Rand) *GeneRegulationModule {
	return &GeneRegulationModule{mlModule: mlModule{model}, Variance: variance, rng: rng}
}

func (m *GeneRegulationModule) Name() string { return "GeneRegulationModule" }

func (m *GeneRegulationModule) Run(ctx context.Context, a Agent) error {
	return runStaged(ctx, m, a)
}

func (m *GeneRegulationModule) Apply(a Agent, p []float64) error {
	c, ok := a.(Regulatable)
	if !ok {
		return capabilityError(a, "regulatable")
	}
	c.RegulateGenes(0.5 + p[0] + uniform(m.rng, m.Variance))
	return nil
}

// === PlasticityModule ===

// PlasticityModule applies a Hebbian rule to one synapse: coincident pre and
// post firing strengthens it towards 1, pre-only firing weakens it towards 0.
type PlasticityModule struct {
	Synapse      *Synapse
	LearningRate float64
}

func NewPlasticityModule(s *Synapse, learningRate float64) *PlasticityModule {
	return &PlasticityModule{Synapse: s, LearningRate: learningRate}
}

func (m *PlasticityModule) Name() string { return "PlasticityModule" }

func (m *PlasticityModule) Run(_ context.Context, _ Agent) error {
	pre := m.Synapse.Pre.Firing()
	post := m.Synapse.Post.Firing()
	switch {
	case pre && post:
		m.Synapse.Weight += m.LearningRate * (1 - m.Synapse.Weight)
	case pre:
		m.Synapse.Weight -= m.LearningRate * m.Synapse.Weight
	}
	return nil
}
