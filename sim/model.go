package sim

import (
	"context"
	"fmt"
)

// Model is a pluggable inference backend. Predict receives one flattened
// input sample and returns a flattened output vector.
// Implementations used with the parallel scheduler must be safe for concurrent Predict calls.
type Model interface {
	Predict(ctx context.Context, input []float64) ([]float64, error)
	// InputShape is the expected input shape without the batch dimension; nil means unchecked.
	InputShape() []int
	Name() string
}

// ModelConfig selects and loads a model backend.
type ModelConfig struct {
	// Path to a model file; the backend kind is read from the file.
	Path string `yaml:"path"`
	// InputShape overrides the shape declared in the model file.
	InputShape []int `yaml:"input_shape"`
}

// NewModelFunc constructs a Model from a ModelConfig.
// Set by sim/model's init(); importing sim/model registers it.
var NewModelFunc func(cfg ModelConfig) (Model, error)

// NewModel builds a model through the registered backend loader.
func NewModel(cfg ModelConfig) (Model, error) {
	if NewModelFunc == nil {
		panic("NewModelFunc not registered: import sim/model to register it " +
			"(add: import _ \"github.com/inference-sim/organoid-sim/sim/model\")")
	}
	return NewModelFunc(cfg)
}

// FuncModel adapts a Go function to the Model interface.
type FuncModel struct {
	Label string
	Shape []int
	Fn    func(ctx context.Context, input []float64) ([]float64, error)
}

func (m *FuncModel) Predict(ctx context.Context, input []float64) ([]float64, error) {
	return m.Fn(ctx, input)
}

func (m *FuncModel) InputShape() []int { return m.Shape }

func (m *FuncModel) Name() string {
	if m.Label == "" {
		return "FuncModel"
	}
	return m.Label
}

// ShapeSize returns the number of elements of shape, or 0 for an empty shape.
func ShapeSize(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// predict validates input against m's shape, runs it and rejects empty outputs.
func predict(ctx context.Context, m Model, input []float64) ([]float64, error) {
	if want := ShapeSize(m.InputShape()); want > 0 && len(input) != want {
		return nil, fmt.Errorf("%s: input has %d values, model expects shape %v (%d values)",
			m.Name(), len(input), m.InputShape(), want)
	}
	out, err := m.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%s: predict: %w", m.Name(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty prediction", m.Name())
	}
	return out, nil
}
