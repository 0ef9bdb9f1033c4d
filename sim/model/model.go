// Package model provides Go-native inference backends for sim.Model, loaded
// from YAML model files.
package model

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/organoid-sim/sim"
)

// base carries the identity shared by every backend.
type base struct {
	name  string
	shape []int
}

func (b *base) Name() string      { return b.name }
func (b *base) InputShape() []int { return b.shape }

// Load reads the model file at path and builds its backend.
func Load(path string) (sim.Model, error) {
	return New(sim.ModelConfig{Path: path})
}

// New builds the model described by cfg. A non-empty cfg.InputShape overrides
// the shape declared in the file. Without either, the shape is derived from the
// model's weights where possible.
func New(cfg sim.ModelConfig) (sim.Model, error) {
	f, err := LoadFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	if len(cfg.InputShape) > 0 {
		f.InputShape = cfg.InputShape
	}
	m, err := FromFile(f)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", cfg.Path, err)
	}
	logrus.Infof("Loaded %s model %q (input shape %v)", f.Kind, m.Name(), m.InputShape())
	return m, nil
}

// FromFile builds the backend for an already parsed model file.
func FromFile(f *File) (sim.Model, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	name := f.Name
	if name == "" {
		name = f.Kind
	}
	shape := f.InputShape
	switch f.Kind {
	case KindMLP:
		if shape == nil {
			shape = []int{len(f.Layers[0].Weights[0])}
		}
		if err := checkWidth(shape, len(f.Layers[0].Weights[0])); err != nil {
			return nil, err
		}
		return NewMLP(name, shape, f.Layers)
	case KindLinear, KindLogistic:
		if shape == nil {
			shape = []int{len(f.Weights)}
		}
		if err := checkWidth(shape, len(f.Weights)); err != nil {
			return nil, err
		}
		if f.Kind == KindLogistic {
			return NewLogistic(name, shape, f.Weights, f.Bias), nil
		}
		return NewLinear(name, shape, f.Weights, f.Bias), nil
	case KindTree:
		return NewTree(name, shape, f.Nodes)
	case KindConstant:
		return NewConstant(name, shape, f.Values), nil
	default:
		panic(fmt.Sprintf("unhandled model kind %q", f.Kind))
	}
}

func checkWidth(shape []int, width int) error {
	if n := sim.ShapeSize(shape); n != width {
		return fmt.Errorf("input shape %v has %d values but the model takes %d", shape, n, width)
	}
	return nil
}
