package sim

import (
	"fmt"
	"math"
)

// InputFunc produces the model input for a cell.
// Functions used with the parallel scheduler must only read cell state.
type InputFunc func(c Cell) []float64

// SpikingDefaultInputSize is the length of SpikingDefaultInput's output.
const SpikingDefaultInputSize = 10

// StateInput feeds the cell's own observable value as a single feature.
func StateInput(c Cell) []float64 {
	return []float64{c.Value()}
}

// SpikingDefaultInput is a constant drive of ten 0.5 values.
func SpikingDefaultInput(Cell) []float64 {
	in := make([]float64, SpikingDefaultInputSize)
	for i := range in {
		in[i] = 0.5
	}
	return in
}

// ConstantInput always returns a copy of values.
func ConstantInput(values []float64) InputFunc {
	return func(Cell) []float64 {
		return append([]float64(nil), values...)
	}
}

// PositionInput encodes the cell position as 0.5 + (x_i mod 5) * 0.1, with the
// modulus taken in [0, 5), cycling over the coordinates until length features
// are produced. A length of zero yields one feature per coordinate.
func PositionInput(length int) InputFunc {
	return func(c Cell) []float64 {
		pos := c.Position()
		n := length
		if n <= 0 {
			n = len(pos)
		}
		in := make([]float64, n)
		if len(pos) == 0 {
			return in
		}
		for i := range in {
			m := math.Mod(pos[i%len(pos)], 5)
			if m < 0 {
				m += 5
			}
			in[i] = 0.5 + m*0.1
		}
		return in
	}
}

// NoiseSource is an environment that can draw observation noise.
type NoiseSource interface {
	Noise() float64
}

// NoisyStateInput adds one noise draw to the cell's value.
func NoisyStateInput(src NoiseSource) InputFunc {
	return func(c Cell) []float64 {
		return []float64{c.Value() + src.Noise()}
	}
}

// ConcentrationInput reads the field at the cell's position.
func ConcentrationInput(field ConcentrationField) InputFunc {
	return func(c Cell) []float64 {
		return []float64{field.Concentration(c.Position())}
	}
}

// InputConfig selects a built-in input function.
type InputConfig struct {
	Kind   string    `yaml:"kind"`
	Values []float64 `yaml:"values"`
	Length int       `yaml:"length"`
}

// ValidInputKinds is the set of recognized input function names.
var ValidInputKinds = map[string]bool{
	"": true, "default": true, "state": true, "constant": true,
	"position": true, "noisy-state": true, "concentration": true,
}

// NewInputFunc builds the input function named by cfg.Kind against env.
// Returns nil for "" and "default", meaning the cell keeps its own default.
func NewInputFunc(cfg InputConfig, env Environment) (InputFunc, error) {
	switch cfg.Kind {
	case "", "default":
		return nil, nil
	case "state":
		return StateInput, nil
	case "constant":
		if len(cfg.Values) == 0 {
			return nil, fmt.Errorf("constant input needs values")
		}
		return ConstantInput(cfg.Values), nil
	case "position":
		return PositionInput(cfg.Length), nil
	case "noisy-state":
		src, ok := env.(NoiseSource)
		if !ok {
			return nil, fmt.Errorf("noisy-state input needs a stochastic environment, got %q", env.Kind())
		}
		return NoisyStateInput(src), nil
	case "concentration":
		field, ok := env.(ConcentrationField)
		if !ok {
			return nil, fmt.Errorf("concentration input needs a field environment, got %q", env.Kind())
		}
		return ConcentrationInput(field), nil
	default:
		return nil, fmt.Errorf("unknown input kind %q", cfg.Kind)
	}
}
