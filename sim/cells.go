package sim

import (
	"context"
	"math"
)

// Excitable is implemented by cells carrying a membrane potential.
type Excitable interface {
	MembranePotential() float64
	Threshold() float64
	Depolarize(amount float64)
}

// membrane holds integrate-and-fire state shared by neuron-like cells.
type membrane struct {
	potential float64
	threshold float64
	spikes    int
}

func (m *membrane) MembranePotential() float64 { return m.potential }
func (m *membrane) Threshold() float64         { return m.threshold }
func (m *membrane) Depolarize(amount float64)  { m.potential += amount }

// Spikes returns how many times the cell has fired.
func (m *membrane) Spikes() int { return m.spikes }

// Firing reports whether the potential has reached the threshold.
func (m *membrane) Firing() bool { return m.potential >= m.threshold }

// fire resets the potential if the threshold is reached.
func (m *membrane) fire() bool {
	if !m.Firing() {
		return false
	}
	m.potential = 0
	m.spikes++
	return true
}

// === SpikingNeuronCell ===

// SpikingNeuronCell integrates model output into its membrane potential and
// fires (resets to zero) once the potential reaches its threshold.
type SpikingNeuronCell struct {
	BaseCell
	membrane
}

func NewSpikingNeuronCell(id AgentID, position []float64, threshold float64) *SpikingNeuronCell {
	c := &SpikingNeuronCell{
		BaseCell: newBaseCell(id, KindSpikingNeuron, position),
		membrane: membrane{threshold: threshold},
	}
	c.input = SpikingDefaultInput
	return c
}

func (c *SpikingNeuronCell) Value() float64 { return c.potential }
func (c *SpikingNeuronCell) Label() string  { return "" }

func (c *SpikingNeuronCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *SpikingNeuronCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.potential, "")
	c.fire()
	return nil
}

// === GrowthShrinkageCell ===

// GrowthShrinkageCell tracks a volume that never drops below zero.
type GrowthShrinkageCell struct {
	BaseCell
	volume float64
}

func NewGrowthShrinkageCell(id AgentID, position []float64, initialVolume float64) *GrowthShrinkageCell {
	c := &GrowthShrinkageCell{
		BaseCell: newBaseCell(id, KindGrowthShrinkage, position),
		volume:   math.Max(0, initialVolume),
	}
	c.input = StateInput
	return c
}

func (c *GrowthShrinkageCell) Volume() float64 { return c.volume }
func (c *GrowthShrinkageCell) Value() float64  { return c.volume }
func (c *GrowthShrinkageCell) Label() string   { return "" }

func (c *GrowthShrinkageCell) Grow(amount float64) {
	c.volume = math.Max(0, c.volume+amount)
}

func (c *GrowthShrinkageCell) Shrink(amount float64) {
	c.volume = math.Max(0, c.volume-amount)
}

func (c *GrowthShrinkageCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *GrowthShrinkageCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.volume, "")
	return nil
}

// === DifferentiatingCell ===

// DifferentiatingCell holds a categorical fate. Value is the fate's index.
type DifferentiatingCell struct {
	BaseCell
	state string
	index int
}

func NewDifferentiatingCell(id AgentID, position []float64, state string) *DifferentiatingCell {
	c := &DifferentiatingCell{
		BaseCell: newBaseCell(id, KindDifferentiating, position),
		state:    state,
	}
	c.input = StateInput
	return c
}

func (c *DifferentiatingCell) State() string  { return c.state }
func (c *DifferentiatingCell) Value() float64 { return float64(c.index) }
func (c *DifferentiatingCell) Label() string  { return c.state }

func (c *DifferentiatingCell) Differentiate(index int, state string) {
	c.index = index
	c.state = state
}

func (c *DifferentiatingCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *DifferentiatingCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, float64(c.index), c.state)
	return nil
}

// === ChemotacticCell ===

// ChemotacticCell moves through the environment and records the gradient
// reading at its current position.
type ChemotacticCell struct {
	BaseCell
	gradient float64
}

func NewChemotacticCell(id AgentID, position []float64) *ChemotacticCell {
	c := &ChemotacticCell{BaseCell: newBaseCell(id, KindChemotactic, position)}
	c.input = StateInput
	return c
}

func (c *ChemotacticCell) Gradient() float64 { return c.gradient }
func (c *ChemotacticCell) Value() float64    { return c.gradient }
func (c *ChemotacticCell) Label() string     { return "" }

func (c *ChemotacticCell) SetGradient(g float64) { c.gradient = g }

// MoveBy displaces the cell. Extra components of delta are ignored.
func (c *ChemotacticCell) MoveBy(delta []float64) {
	for i := range c.position {
		if i < len(delta) {
			c.position[i] += delta[i]
		}
	}
}

func (c *ChemotacticCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *ChemotacticCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.gradient, "")
	return nil
}

// === ImmuneCell ===

type ImmuneCell struct {
	BaseCell
	active bool
}

func NewImmuneCell(id AgentID, position []float64, active bool) *ImmuneCell {
	c := &ImmuneCell{BaseCell: newBaseCell(id, KindImmune, position), active: active}
	c.input = StateInput
	return c
}

func (c *ImmuneCell) Active() bool { return c.active }
func (c *ImmuneCell) Activate()    { c.active = true }
func (c *ImmuneCell) Deactivate()  { c.active = false }

func (c *ImmuneCell) Value() float64 {
	if c.active {
		return 1
	}
	return 0
}

func (c *ImmuneCell) Label() string {
	if c.active {
		return "active"
	}
	return "inactive"
}

func (c *ImmuneCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *ImmuneCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.Value(), c.Label())
	return nil
}

// === SynapticPlasticityCell ===

// SynapticPlasticityCell is a neuron with outgoing synapses. Each update it
// transmits across its synapses before firing.
type SynapticPlasticityCell struct {
	BaseCell
	membrane
	synapses []*Synapse
}

func NewSynapticPlasticityCell(id AgentID, position []float64, threshold float64) *SynapticPlasticityCell {
	c := &SynapticPlasticityCell{
		BaseCell: newBaseCell(id, KindSynapticPlasticity, position),
		membrane: membrane{threshold: threshold},
	}
	c.input = StateInput
	return c
}

func (c *SynapticPlasticityCell) Value() float64 { return c.potential }
func (c *SynapticPlasticityCell) Label() string  { return "" }

// Synapses returns the outgoing synapses.
func (c *SynapticPlasticityCell) Synapses() []*Synapse { return c.synapses }

func (c *SynapticPlasticityCell) AddSynapse(s *Synapse) {
	c.synapses = append(c.synapses, s)
}

func (c *SynapticPlasticityCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *SynapticPlasticityCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.potential, "")
	for _, s := range c.synapses {
		s.Transmit()
	}
	c.fire()
	return nil
}

// === MetabolicCell ===

type MetabolicCell struct {
	BaseCell
	energy float64
	rate   float64
}

func NewMetabolicCell(id AgentID, position []float64, energy, rate float64) *MetabolicCell {
	c := &MetabolicCell{
		BaseCell: newBaseCell(id, KindMetabolic, position),
		energy:   energy,
		rate:     rate,
	}
	c.input = StateInput
	return c
}

func (c *MetabolicCell) Energy() float64         { return c.energy }
func (c *MetabolicCell) MetabolismRate() float64 { return c.rate }
func (c *MetabolicCell) Value() float64          { return c.energy }
func (c *MetabolicCell) Label() string           { return "" }

// Metabolize scales energy by factor.
func (c *MetabolicCell) Metabolize(factor float64) {
	c.energy *= factor
}

func (c *MetabolicCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *MetabolicCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.energy, "")
	return nil
}

// === GeneRegulationCell ===

type GeneRegulationCell struct {
	BaseCell
	level float64
}

func NewGeneRegulationCell(id AgentID, position []float64, level float64) *GeneRegulationCell {
	c := &GeneRegulationCell{
		BaseCell: newBaseCell(id, KindGeneRegulation, position),
		level:    level,
	}
	c.input = StateInput
	return c
}

func (c *GeneRegulationCell) ExpressionLevel() float64 { return c.level }
func (c *GeneRegulationCell) Value() float64           { return c.level }
func (c *GeneRegulationCell) Label() string            { return "" }

// RegulateGenes scales the expression level by factor.
func (c *GeneRegulationCell) RegulateGenes(factor float64) {
	c.level *= factor
}

func (c *GeneRegulationCell) Update(ctx context.Context, step int) error {
	return c.Commit(ctx, step, nil)
}

func (c *GeneRegulationCell) Commit(ctx context.Context, step int, inferred [][]float64) error {
	if err := runModules(ctx, c, c.modules, inferred); err != nil {
		return err
	}
	c.record(step, c.level, "")
	return nil
}
