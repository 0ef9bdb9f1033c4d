package model

import (
	"context"
	"fmt"
)

// Tree is a binary decision tree stored as a node table rooted at index 0.
type Tree struct {
	base
	nodes []TreeNode
}

func NewTree(name string, shape []int, nodes []TreeNode) (*Tree, error) {
	if err := validateTree(nodes); err != nil {
		return nil, err
	}
	return &Tree{base: base{name: name, shape: shape}, nodes: nodes}, nil
}

func (m *Tree) Predict(ctx context.Context, input []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := 0
	for {
		n := m.nodes[i]
		if len(n.Value) > 0 {
			return append([]float64(nil), n.Value...), nil
		}
		if n.Feature >= len(input) {
			return nil, fmt.Errorf("node %d splits on feature %d of a %d-value input", i, n.Feature, len(input))
		}
		if input[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
