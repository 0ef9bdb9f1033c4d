package sim

import "context"

// CellState is the observable state of one cell at the end of a step.
type CellState struct {
	ID       AgentID   `json:"id"`
	Kind     CellKind  `json:"kind"`
	Value    float64   `json:"value"`
	Label    string    `json:"label,omitempty"`
	Position []float64 `json:"position"`
	Updated  bool      `json:"updated"`
}

// StepSnapshot is published to observers after every completed step.
type StepSnapshot struct {
	Step  int         `json:"step"`
	Steps int         `json:"steps"`
	Cells []CellState `json:"cells"`
}

// StepObserver receives a snapshot after every step. Observer errors are
// logged and do not stop the simulation.
type StepObserver interface {
	ObserveStep(ctx context.Context, snap StepSnapshot) error
}

// Snapshot captures the cells of org. updated marks the agents that ran this step.
func Snapshot(org *Organoid, step, steps int, updated map[AgentID]bool) StepSnapshot {
	cells := org.Cells()
	snap := StepSnapshot{Step: step, Steps: steps, Cells: make([]CellState, 0, len(cells))}
	for _, c := range cells {
		snap.Cells = append(snap.Cells, CellState{
			ID:       c.ID(),
			Kind:     c.Kind(),
			Value:    c.Value(),
			Label:    c.Label(),
			Position: append([]float64(nil), c.Position()...),
			Updated:  updated[c.ID()],
		})
	}
	return snap
}
