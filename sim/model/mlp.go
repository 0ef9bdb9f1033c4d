package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation names.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
	ActivationSoftmax = "softmax"
)

// ValidActivations is the set of recognized activation names. Empty means linear.
var ValidActivations = map[string]bool{
	"": true, ActivationLinear: true, ActivationReLU: true,
	ActivationSigmoid: true, ActivationTanh: true, ActivationSoftmax: true,
}

type denseLayer struct {
	w          *mat.Dense
	b          *mat.VecDense
	activation string
}

// MLP is a feed-forward network of dense layers.
// Weights are read-only after construction, so Predict is safe for concurrent use.
type MLP struct {
	base
	layers []denseLayer
}

// NewMLP builds an MLP from validated layer specs.
func NewMLP(name string, shape []int, specs []LayerSpec) (*MLP, error) {
	if err := validateLayers(specs); err != nil {
		return nil, err
	}
	m := &MLP{base: base{name: name, shape: shape}}
	for _, s := range specs {
		rows, cols := len(s.Weights), len(s.Weights[0])
		flat := make([]float64, 0, rows*cols)
		for _, row := range s.Weights {
			flat = append(flat, row...)
		}
		bias := make([]float64, rows)
		copy(bias, s.Bias)
		m.layers = append(m.layers, denseLayer{
			w:          mat.NewDense(rows, cols, flat),
			b:          mat.NewVecDense(rows, bias),
			activation: s.Activation,
		})
	}
	return m, nil
}

// Inputs returns the width of the first layer.
func (m *MLP) Inputs() int {
	_, c := m.layers[0].w.Dims()
	return c
}

func (m *MLP) Predict(ctx context.Context, input []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input) != m.Inputs() {
		return nil, fmt.Errorf("mlp takes %d inputs, got %d", m.Inputs(), len(input))
	}
	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for _, l := range m.layers {
		rows, _ := l.w.Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(l.w, x)
		y.AddVec(y, l.b)
		activate(l.activation, y.RawVector().Data)
		x = y
	}
	return x.RawVector().Data, nil
}

// activate applies the named activation to v in place.
func activate(name string, v []float64) {
	switch name {
	case "", ActivationLinear:
	case ActivationReLU:
		for i, x := range v {
			v[i] = math.Max(0, x)
		}
	case ActivationSigmoid:
		for i, x := range v {
			v[i] = sigmoid(x)
		}
	case ActivationTanh:
		for i, x := range v {
			v[i] = math.Tanh(x)
		}
	case ActivationSoftmax:
		floats.AddConst(-floats.Max(v), v)
		for i, x := range v {
			v[i] = math.Exp(x)
		}
		floats.Scale(1/floats.Sum(v), v)
	default:
		panic(fmt.Sprintf("unknown activation %q", name))
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
