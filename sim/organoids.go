package sim

import (
	"fmt"
	"math/rand"
)

// OrganoidConfig describes an organoid in a scenario file. Nil pointers (and
// a zero num_cells or empty states) select the defaults listed on each field;
// an explicit zero is kept.
type OrganoidConfig struct {
	Kind     string      `yaml:"kind"`
	NumCells int         `yaml:"num_cells"` // default 10
	Input    InputConfig `yaml:"input"`

	// spiking-neuron, synaptic-plasticity
	Threshold *float64 `yaml:"threshold"` // default 1.0

	// growth-shrinkage
	InitialVolume       *float64 `yaml:"initial_volume"`        // default 1.0
	RandomVolume        bool     `yaml:"random_initial_volume"` // draw U(0.5, 1.5) per cell instead
	GrowthAmount        *float64 `yaml:"growth_amount"`         // default 0.1
	GrowthVariance      *float64 `yaml:"growth_variance"`       // default 0.05
	PredictionThreshold *float64 `yaml:"prediction_threshold"`  // default 0.5

	// differentiating
	States []string `yaml:"states"` // default [undifferentiated, differentiated]

	// synaptic-plasticity
	NumSynapses  *int     `yaml:"num_synapses"`  // default 5
	LearningRate *float64 `yaml:"learning_rate"` // default 0.01

	// metabolic
	MetabolismRate *float64 `yaml:"metabolism_rate"` // default 1.0
	InitialEnergy  *float64 `yaml:"initial_energy"`  // default 100

	// gene-regulation
	ExpressionLevel    *float64 `yaml:"expression_level"`    // default 1.0
	RegulationVariance float64  `yaml:"regulation_variance"` // default 0
}

// ValidOrganoidKinds is the set of recognized organoid kinds.
var ValidOrganoidKinds = map[string]bool{
	string(KindSpikingNeuron): true, string(KindGrowthShrinkage): true,
	string(KindDifferentiating): true, string(KindChemotactic): true,
	string(KindImmune): true, string(KindSynapticPlasticity): true,
	string(KindMetabolic): true, string(KindGeneRegulation): true,
}

// DefaultStates are the fates of a differentiating organoid when none are configured.
var DefaultStates = []string{"undifferentiated", "differentiated"}

type organoidParams struct {
	numCells            int
	threshold           float64
	initialVolume       float64
	randomVolume        bool
	growthAmount        float64
	growthVariance      float64
	predictionThreshold float64
	states              []string
	numSynapses         int
	learningRate        float64
	metabolismRate      float64
	initialEnergy       float64
	expressionLevel     float64
	regulationVariance  float64
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (c OrganoidConfig) params() organoidParams {
	p := organoidParams{
		numCells:            c.NumCells,
		threshold:           orDefault(c.Threshold, 1.0),
		initialVolume:       orDefault(c.InitialVolume, 1.0),
		randomVolume:        c.RandomVolume,
		growthAmount:        orDefault(c.GrowthAmount, 0.1),
		growthVariance:      orDefault(c.GrowthVariance, 0.05),
		predictionThreshold: orDefault(c.PredictionThreshold, 0.5),
		states:              c.States,
		numSynapses:         5,
		learningRate:        orDefault(c.LearningRate, 0.01),
		metabolismRate:      orDefault(c.MetabolismRate, 1.0),
		initialEnergy:       orDefault(c.InitialEnergy, 100),
		expressionLevel:     orDefault(c.ExpressionLevel, 1.0),
		regulationVariance:  c.RegulationVariance,
	}
	if p.numCells == 0 {
		p.numCells = 10
	}
	if c.NumSynapses != nil {
		p.numSynapses = *c.NumSynapses
	}
	if len(p.states) == 0 {
		p.states = DefaultStates
	}
	return p
}

// Validate checks kind and parameter ranges.
func (c OrganoidConfig) Validate() error {
	if !ValidOrganoidKinds[c.Kind] {
		return fmt.Errorf("unknown organoid kind %q", c.Kind)
	}
	if !ValidInputKinds[c.Input.Kind] {
		return fmt.Errorf("unknown input kind %q", c.Input.Kind)
	}
	if c.NumCells < 0 {
		return fmt.Errorf("num_cells must be non-negative, got %d", c.NumCells)
	}
	if c.GrowthVariance != nil && *c.GrowthVariance < 0 {
		return fmt.Errorf("growth_variance must be non-negative, got %f", *c.GrowthVariance)
	}
	if c.RegulationVariance < 0 {
		return fmt.Errorf("regulation_variance must be non-negative, got %f", c.RegulationVariance)
	}
	if c.NumSynapses != nil && *c.NumSynapses < 0 {
		return fmt.Errorf("num_synapses must be non-negative, got %d", *c.NumSynapses)
	}
	if r := c.LearningRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("learning_rate must be in [0, 1], got %f", *r)
	}
	p := c.params()
	if c.Kind == string(KindSynapticPlasticity) && p.numSynapses > 0 && p.numCells < 2 {
		return fmt.Errorf("wiring %d synapses needs at least 2 cells, got %d", p.numSynapses, p.numCells)
	}
	return nil
}

// BuildOrganoid validates cfg and builds the organoid it describes, with every
// cell driven by model.
func BuildOrganoid(cfg OrganoidConfig, env Environment, model Model, rng *PartitionedRNG) (*Organoid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch CellKind(cfg.Kind) {
	case KindSpikingNeuron:
		return NewSpikingNeuronOrganoid(env, model, cfg, rng)
	case KindGrowthShrinkage:
		return NewGrowthShrinkageOrganoid(env, model, cfg, rng)
	case KindDifferentiating:
		return NewDifferentiationOrganoid(env, model, cfg, rng)
	case KindChemotactic:
		return NewChemotaxisOrganoid(env, model, cfg, rng)
	case KindImmune:
		return NewImmuneResponseOrganoid(env, model, cfg, rng)
	case KindSynapticPlasticity:
		return NewSynapticPlasticityOrganoid(env, model, cfg, rng)
	case KindMetabolic:
		return NewMetabolicOrganoid(env, model, cfg, rng)
	case KindGeneRegulation:
		return NewGeneRegulationOrganoid(env, model, cfg, rng)
	default:
		panic(fmt.Sprintf("unhandled organoid kind %q", cfg.Kind))
	}
}

// populate creates p.numCells cells with newCell, applies the configured input
// function and adds them to a new organoid.
func populate(kind CellKind, env Environment, cfg OrganoidConfig, rng *PartitionedRNG,
	newCell func(id AgentID, pos []float64, placement *rand.Rand) (Cell, error)) (*Organoid, error) {
	input, err := NewInputFunc(cfg.Input, env)
	if err != nil {
		return nil, err
	}
	placement := rng.ForSubsystem(SubsystemPlacement)
	org := NewOrganoid(string(kind), env)
	for i := 0; i < cfg.params().numCells; i++ {
		pos := RandomPosition(placement, env.Dimensions(), env.Size())
		c, err := newCell(CellID(i), pos, placement)
		if err != nil {
			return nil, err
		}
		if input != nil {
			c.SetInputFunc(input)
		}
		if err := org.AddAgent(c); err != nil {
			return nil, err
		}
	}
	return org, nil
}

func NewSpikingNeuronOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	p := cfg.params()
	return populate(KindSpikingNeuron, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewSpikingNeuronCell(id, pos, p.threshold)
		c.AddModule(NewSpikingNeuronModule(model))
		return c, nil
	})
}

func NewGrowthShrinkageOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	p := cfg.params()
	modRNG := rng.ForSubsystem(SubsystemModules)
	return populate(KindGrowthShrinkage, env, cfg, rng, func(id AgentID, pos []float64, placement *rand.Rand) (Cell, error) {
		volume := p.initialVolume
		if p.randomVolume {
			volume = 0.5 + placement.Float64()
		}
		c := NewGrowthShrinkageCell(id, pos, volume)
		c.AddModule(NewGrowthShrinkageModule(model, p.growthAmount, p.growthVariance, p.predictionThreshold, modRNG))
		return c, nil
	})
}

func NewDifferentiationOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	p := cfg.params()
	return populate(KindDifferentiating, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewDifferentiatingCell(id, pos, p.states[0])
		c.AddModule(NewDifferentiationModule(model, p.states))
		return c, nil
	})
}

func NewChemotaxisOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	field, _ := env.(ConcentrationField)
	return populate(KindChemotactic, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewChemotacticCell(id, pos)
		if field != nil {
			c.SetGradient(field.Concentration(c.Position()))
		}
		c.AddModule(NewChemotaxisModule(model, field))
		return c, nil
	})
}

func NewImmuneResponseOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	return populate(KindImmune, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewImmuneCell(id, pos, false)
		c.AddModule(NewImmuneResponseModule(model))
		return c, nil
	})
}

// NewSynapticPlasticityOrganoid builds neurons driven by model and wires
// num_synapses random synapses between distinct cells. Each synapse gets a
// PlasticityModule on its postsynaptic cell.
func NewSynapticPlasticityOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	p := cfg.params()
	if p.numSynapses > 0 && p.numCells < 2 {
		return nil, fmt.Errorf("wiring %d synapses needs at least 2 cells, got %d", p.numSynapses, p.numCells)
	}
	var neurons []*SynapticPlasticityCell
	org, err := populate(KindSynapticPlasticity, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewSynapticPlasticityCell(id, pos, p.threshold)
		c.AddModule(NewSpikingNeuronModule(model))
		neurons = append(neurons, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	wiring := rng.ForSubsystem(SubsystemWiring)
	n := len(neurons)
	for k := 0; k < p.numSynapses; k++ {
		i := wiring.Intn(n)
		j := wiring.Intn(n - 1)
		if j >= i {
			j++
		}
		s := NewSynapse(neurons[i], neurons[j])
		neurons[i].AddSynapse(s)
		neurons[j].AddModule(NewPlasticityModule(s, p.learningRate))
	}
	return org, nil
}

func NewMetabolicOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	p := cfg.params()
	return populate(KindMetabolic, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewMetabolicCell(id, pos, p.initialEnergy, p.metabolismRate)
		c.AddModule(NewMetabolicModule(model))
		return c, nil
	})
}

func NewGeneRegulationOrganoid(env Environment, model Model, cfg OrganoidConfig, rng *PartitionedRNG) (*Organoid, error) {
	p := cfg.params()
	modRNG := rng.ForSubsystem(SubsystemModules)
	return populate(KindGeneRegulation, env, cfg, rng, func(id AgentID, pos []float64, _ *rand.Rand) (Cell, error) {
		c := NewGeneRegulationCell(id, pos, p.expressionLevel)
		c.AddModule(NewGeneRegulationModule(model, p.regulationVariance, modRNG))
		return c, nil
	})
}
