package model

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Linear predicts w·x + b as a single output.
type Linear struct {
	base
	weights []float64
	bias    float64
}

func NewLinear(name string, shape []int, weights []float64, bias float64) *Linear {
	return &Linear{base: base{name: name, shape: shape}, weights: weights, bias: bias}
}

func (m *Linear) Predict(ctx context.Context, input []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	y, err := m.score(input)
	if err != nil {
		return nil, err
	}
	return []float64{y}, nil
}

func (m *Linear) score(input []float64) (float64, error) {
	if len(input) != len(m.weights) {
		return 0, fmt.Errorf("%d weights for %d inputs", len(m.weights), len(input))
	}
	return floats.Dot(m.weights, input) + m.bias, nil
}

// Logistic predicts the probability sigmoid(w·x + b) of the positive class.
type Logistic struct {
	Linear
}

func NewLogistic(name string, shape []int, weights []float64, bias float64) *Logistic {
	return &Logistic{*NewLinear(name, shape, weights, bias)}
}

func (m *Logistic) Predict(ctx context.Context, input []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	y, err := m.score(input)
	if err != nil {
		return nil, err
	}
	return []float64{sigmoid(y)}, nil
}

// Constant ignores its input.
type Constant struct {
	base
	values []float64
}

func NewConstant(name string, shape []int, values []float64) *Constant {
	return &Constant{base: base{name: name, shape: shape}, values: values}
}

func (m *Constant) Predict(ctx context.Context, _ []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]float64(nil), m.values...), nil
}
