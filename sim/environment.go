package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Environment kinds.
const (
	EnvBase             = "base"
	EnvGradient         = "gradient"
	EnvTemperature      = "temperature"
	EnvStochastic       = "stochastic"
	EnvChemicalGradient = "chemical-gradient"
	EnvElectricField    = "electric-field"
)

// Defaults for environments built without explicit geometry.
const (
	DefaultDimensions = 3
	DefaultSize       = 100.0
)

// Environment is the context an organoid is simulated in. The scheduler
// calls Update once at the start of every step, before any agent update.
type Environment interface {
	Kind() string
	Dimensions() int
	Size() float64
	Update(step int)
	AddCondition(c Condition)
	Conditions() []Condition
}

// Condition is a time-varying factor attached to an environment.
type Condition interface {
	Name() string
	Update(step int, rng *rand.Rand)
}

// ConditionFunc adapts a function to the Condition interface.
type ConditionFunc struct {
	Label string
	Fn    func(step int, rng *rand.Rand)
}

func (c ConditionFunc) Name() string                    { return c.Label }
func (c ConditionFunc) Update(step int, rng *rand.Rand) { c.Fn(step, rng) }

// BaseEnvironment implements the geometry and condition handling shared by
// all environments. Random draws are serialized so input functions may sample
// noise from concurrent inference.
type BaseEnvironment struct {
	mu         sync.Mutex
	kind       string
	dimensions int
	size       float64
	conditions []Condition
	rng        *rand.Rand
}

// NewEnvironment creates a plain environment. rng may be nil for environments
// that never draw random numbers.
func NewEnvironment(dimensions int, size float64, rng *rand.Rand) *BaseEnvironment {
	e := &BaseEnvironment{}
	e.init(EnvBase, dimensions, size, rng)
	return e
}

func (e *BaseEnvironment) init(kind string, dimensions int, size float64, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	e.kind = kind
	e.dimensions = dimensions
	e.size = size
	e.rng = rng
}

func (e *BaseEnvironment) Kind() string            { return e.kind }
func (e *BaseEnvironment) Dimensions() int         { return e.dimensions }
func (e *BaseEnvironment) Size() float64           { return e.size }
func (e *BaseEnvironment) Conditions() []Condition { return e.conditions }

func (e *BaseEnvironment) AddCondition(c Condition) {
	e.conditions = append(e.conditions, c)
}

// Update advances every condition in insertion order.
func (e *BaseEnvironment) Update(step int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.conditions {
		c.Update(step, e.rng)
	}
}

func (e *BaseEnvironment) normal(stddev float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.NormFloat64() * stddev
}

func (e *BaseEnvironment) uniform(lo, hi float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return lo + e.rng.Float64()*(hi-lo)
}

// === GradientEnvironment ===

// GradientFunc maps a position to a scalar.
type GradientFunc func(position []float64) float64

// RadialGradient decays exponentially with the distance from center.
func RadialGradient(center []float64, decay float64) GradientFunc {
	return func(pos []float64) float64 {
		var sq float64
		for i := range pos {
			var c float64
			if i < len(center) {
				c = center[i]
			}
			sq += (pos[i] - c) * (pos[i] - c)
		}
		return math.Exp(-decay * math.Sqrt(sq))
	}
}

type GradientEnvironment struct {
	BaseEnvironment
	fn GradientFunc
}

func NewGradientEnvironment(fn GradientFunc, dimensions int, size float64, rng *rand.Rand) *GradientEnvironment {
	e := &GradientEnvironment{fn: fn}
	e.init(EnvGradient, dimensions, size, rng)
	return e
}

func (e *GradientEnvironment) Gradient(position []float64) float64 { return e.fn(position) }

// Concentration makes the gradient usable as a ConcentrationField.
func (e *GradientEnvironment) Concentration(position []float64) float64 { return e.fn(position) }

// === TemperatureEnvironment ===

// TemperatureEnvironment holds a temperature that, when a range is set, is
// resampled uniformly from the range on every update.
type TemperatureEnvironment struct {
	BaseEnvironment
	temperature float64
	lo, hi      float64
	ranged      bool
}

func NewTemperatureEnvironment(initial float64, dimensions int, size float64, rng *rand.Rand) *TemperatureEnvironment {
	e := &TemperatureEnvironment{temperature: initial}
	e.init(EnvTemperature, dimensions, size, rng)
	return e
}

// SetRange enables per-update resampling from [lo, hi).
func (e *TemperatureEnvironment) SetRange(lo, hi float64) {
	e.lo, e.hi, e.ranged = lo, hi, true
}

func (e *TemperatureEnvironment) Temperature() float64     { return e.temperature }
func (e *TemperatureEnvironment) SetTemperature(t float64) { e.temperature = t }

func (e *TemperatureEnvironment) Update(step int) {
	if e.ranged {
		e.temperature = e.uniform(e.lo, e.hi)
	}
	e.BaseEnvironment.Update(step)
}

// === StochasticEnvironment ===

type StochasticEnvironment struct {
	BaseEnvironment
	noiseLevel float64
}

func NewStochasticEnvironment(noiseLevel float64, dimensions int, size float64, rng *rand.Rand) *StochasticEnvironment {
	e := &StochasticEnvironment{noiseLevel: noiseLevel}
	e.init(EnvStochastic, dimensions, size, rng)
	return e
}

func (e *StochasticEnvironment) NoiseLevel() float64 { return e.noiseLevel }

// Noise draws from N(0, noiseLevel^2).
func (e *StochasticEnvironment) Noise() float64 {
	return e.normal(e.noiseLevel)
}

// === ChemicalGradientEnvironment ===

type ChemicalGradientEnvironment struct {
	BaseEnvironment
	fn GradientFunc
}

// NewChemicalGradientEnvironment uses fn as the concentration field; nil
// selects the Euclidean norm of the position.
func NewChemicalGradientEnvironment(fn GradientFunc, dimensions int, size float64, rng *rand.Rand) *ChemicalGradientEnvironment {
	if fn == nil {
		fn = func(pos []float64) float64 { return floats.Norm(pos, 2) }
	}
	e := &ChemicalGradientEnvironment{fn: fn}
	e.init(EnvChemicalGradient, dimensions, size, rng)
	return e
}

func (e *ChemicalGradientEnvironment) Concentration(position []float64) float64 {
	return e.fn(position)
}

// === ElectricFieldEnvironment ===

type ElectricFieldEnvironment struct {
	BaseEnvironment
	strength float64
}

func NewElectricFieldEnvironment(strength float64, dimensions int, size float64, rng *rand.Rand) *ElectricFieldEnvironment {
	e := &ElectricFieldEnvironment{strength: strength}
	e.init(EnvElectricField, dimensions, size, rng)
	return e
}

func (e *ElectricFieldEnvironment) FieldStrength() float64 { return e.strength }

// FieldEffect is the field vector at position: strength * position.
func (e *ElectricFieldEnvironment) FieldEffect(position []float64) []float64 {
	out := make([]float64, len(position))
	floats.ScaleTo(out, e.strength, position)
	return out
}

// Concentration is the magnitude of the field effect.
func (e *ElectricFieldEnvironment) Concentration(position []float64) float64 {
	return floats.Norm(e.FieldEffect(position), 2)
}

// === Config ===

// EnvironmentConfig describes an environment in a scenario file.
type EnvironmentConfig struct {
	Kind             string    `yaml:"kind"`
	Dimensions       int       `yaml:"dimensions"`
	Size             float64   `yaml:"size"`
	Temperature      float64   `yaml:"temperature"`
	TemperatureRange []float64 `yaml:"temperature_range"`
	NoiseLevel       float64   `yaml:"noise_level"`
	FieldStrength    float64   `yaml:"field_strength"`
	Center           []float64 `yaml:"center"`
	Decay            float64   `yaml:"decay"`
}

// ValidEnvironmentKinds is the set of recognized environment kinds.
var ValidEnvironmentKinds = map[string]bool{
	"": true, EnvBase: true, EnvGradient: true, EnvTemperature: true,
	EnvStochastic: true, EnvChemicalGradient: true, EnvElectricField: true,
}

// Validate checks kind and parameter ranges.
func (c EnvironmentConfig) Validate() error {
	if !ValidEnvironmentKinds[c.Kind] {
		return fmt.Errorf("unknown environment kind %q", c.Kind)
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("dimensions must be non-negative, got %d", c.Dimensions)
	}
	if c.Size < 0 {
		return fmt.Errorf("size must be non-negative, got %f", c.Size)
	}
	if c.NoiseLevel < 0 {
		return fmt.Errorf("noise_level must be non-negative, got %f", c.NoiseLevel)
	}
	if c.Decay < 0 {
		return fmt.Errorf("decay must be non-negative, got %f", c.Decay)
	}
	if r := c.TemperatureRange; len(r) != 0 && (len(r) != 2 || r[0] > r[1]) {
		return fmt.Errorf("temperature_range must be [low, high], got %v", r)
	}
	return nil
}

// NewEnvironmentFromConfig builds the environment described by cfg. Zero
// dimensions and size fall back to DefaultDimensions and DefaultSize.
func NewEnvironmentFromConfig(cfg EnvironmentConfig, rng *rand.Rand) (Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dims, size := cfg.Dimensions, cfg.Size
	if dims == 0 {
		dims = DefaultDimensions
	}
	if size == 0 {
		size = DefaultSize
	}
	switch cfg.Kind {
	case "", EnvBase:
		return NewEnvironment(dims, size, rng), nil
	case EnvGradient:
		center := cfg.Center
		if len(center) == 0 {
			center = make([]float64, dims)
			for i := range center {
				center[i] = size / 2
			}
		}
		decay := cfg.Decay
		if decay == 0 {
			decay = 1 / size
		}
		return NewGradientEnvironment(RadialGradient(center, decay), dims, size, rng), nil
	case EnvTemperature:
		e := NewTemperatureEnvironment(cfg.Temperature, dims, size, rng)
		if len(cfg.TemperatureRange) == 2 {
			e.SetRange(cfg.TemperatureRange[0], cfg.TemperatureRange[1])
		}
		return e, nil
	case EnvStochastic:
		return NewStochasticEnvironment(cfg.NoiseLevel, dims, size, rng), nil
	case EnvChemicalGradient:
		return NewChemicalGradientEnvironment(nil, dims, size, rng), nil
	case EnvElectricField:
		return NewElectricFieldEnvironment(cfg.FieldStrength, dims, size, rng), nil
	default:
		panic(fmt.Sprintf("unhandled environment kind %q", cfg.Kind))
	}
}
