package model

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model file kinds.
const (
	KindMLP      = "mlp"
	KindLinear   = "linear"
	KindLogistic = "logistic"
	KindTree     = "tree"
	KindConstant = "constant"
)

// ValidKinds is the set of recognized model file kinds.
var ValidKinds = map[string]bool{
	KindMLP: true, KindLinear: true, KindLogistic: true, KindTree: true, KindConstant: true,
}

// File is the on-disk description of a model. Which fields apply depends on Kind.
type File struct {
	Kind       string `yaml:"kind"`
	Name       string `yaml:"name"`
	InputShape []int  `yaml:"input_shape"`

	// mlp
	Layers []LayerSpec `yaml:"layers"`

	// linear, logistic
	Weights []float64 `yaml:"weights"`
	Bias    float64   `yaml:"bias"`

	// tree
	Nodes []TreeNode `yaml:"nodes"`

	// constant
	Values []float64 `yaml:"values"`
}

// LayerSpec is one dense layer: out = activation(Weights * in + Bias).
// Weights has one row per output unit.
type LayerSpec struct {
	Weights    [][]float64 `yaml:"weights"`
	Bias       []float64   `yaml:"bias"`
	Activation string      `yaml:"activation"`
}

// TreeNode is one node of a decision tree. A node with Value set is a leaf;
// otherwise inputs with x[Feature] <= Threshold descend to Left, else Right.
type TreeNode struct {
	Feature   int       `yaml:"feature"`
	Threshold float64   `yaml:"threshold"`
	Left      int       `yaml:"left"`
	Right     int       `yaml:"right"`
	Value     []float64 `yaml:"value"`
}

// LoadFile reads and parses a YAML model file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %q: %w", path, err)
	}
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse model file %q: %w", path, err)
	}
	return &f, nil
}

// Validate checks that the file describes a well-formed model of its kind.
func (f *File) Validate() error {
	if !ValidKinds[f.Kind] {
		return fmt.Errorf("unknown model kind %q", f.Kind)
	}
	for _, d := range f.InputShape {
		if d <= 0 {
			return fmt.Errorf("input_shape dimensions must be positive, got %v", f.InputShape)
		}
	}
	switch f.Kind {
	case KindMLP:
		return validateLayers(f.Layers)
	case KindLinear, KindLogistic:
		if len(f.Weights) == 0 {
			return fmt.Errorf("%s model needs weights", f.Kind)
		}
	case KindTree:
		return validateTree(f.Nodes)
	case KindConstant:
		if len(f.Values) == 0 {
			return fmt.Errorf("constant model needs values")
		}
	}
	return nil
}

func validateLayers(layers []LayerSpec) error {
	if len(layers) == 0 {
		return fmt.Errorf("mlp model needs at least one layer")
	}
	prev := 0
	for i, l := range layers {
		if len(l.Weights) == 0 || len(l.Weights[0]) == 0 {
			return fmt.Errorf("layer %d: empty weights", i)
		}
		in := len(l.Weights[0])
		for r, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d: row %d has %d weights, want %d", i, r, len(row), in)
			}
		}
		if i > 0 && in != prev {
			return fmt.Errorf("layer %d: takes %d inputs but layer %d produces %d", i, in, i-1, prev)
		}
		if l.Bias != nil && len(l.Bias) != len(l.Weights) {
			return fmt.Errorf("layer %d: %d biases for %d units", i, len(l.Bias), len(l.Weights))
		}
		if !ValidActivations[l.Activation] {
			return fmt.Errorf("layer %d: unknown activation %q", i, l.Activation)
		}
		prev = len(l.Weights)
	}
	return nil
}

func validateTree(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return fmt.Errorf("tree model needs at least one node")
	}
	for i, n := range nodes {
		if len(n.Value) > 0 {
			continue
		}
		if n.Feature < 0 {
			return fmt.Errorf("node %d: negative feature index %d", i, n.Feature)
		}
		// Children must come later in the table, which rules out cycles.
		if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
			return fmt.Errorf("node %d: children (%d, %d) must be in (%d, %d)", i, n.Left, n.Right, i, len(nodes))
		}
	}
	return nil
}
