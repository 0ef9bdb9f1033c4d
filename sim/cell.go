package sim

// CellKind names a cell type.
type CellKind string

const (
	KindSpikingNeuron      CellKind = "spiking-neuron"
	KindGrowthShrinkage    CellKind = "growth-shrinkage"
	KindDifferentiating    CellKind = "differentiating"
	KindChemotactic        CellKind = "chemotactic"
	KindImmune             CellKind = "immune"
	KindSynapticPlasticity CellKind = "synaptic-plasticity"
	KindMetabolic          CellKind = "metabolic"
	KindGeneRegulation     CellKind = "gene-regulation"
)

// Sample is one recorded history point of a cell.
type Sample struct {
	Step  int     `json:"step"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// Cell is an agent with an observable scalar state and a recorded history.
// A cell records one Sample per update; skipped steps leave no sample.
type Cell interface {
	Agent
	Kind() CellKind
	// Value is the observable state recorded into history (potential, volume, ...).
	Value() float64
	// Label is a categorical companion to Value; empty for purely numeric cells.
	Label() string
	History() []Sample
	InputFunc() InputFunc
	SetInputFunc(f InputFunc)
}

// InputData returns the model input for c using its input function.
func InputData(c Cell) []float64 {
	f := c.InputFunc()
	if f == nil {
		return StateInput(c)
	}
	return f(c)
}

// BaseCell carries the state shared by every cell type.
type BaseCell struct {
	BaseAgent
	kind    CellKind
	history []Sample
	input   InputFunc
}

func newBaseCell(id AgentID, kind CellKind, position []float64) BaseCell {
	return BaseCell{
		BaseAgent: BaseAgent{id: id, position: append([]float64(nil), position...)},
		kind:      kind,
	}
}

func (c *BaseCell) Kind() CellKind { return c.kind }

// History returns the recorded samples. The slice must not be modified.
func (c *BaseCell) History() []Sample { return c.history }

func (c *BaseCell) InputFunc() InputFunc     { return c.input }
func (c *BaseCell) SetInputFunc(f InputFunc) { c.input = f }

func (c *BaseCell) record(step int, value float64, label string) {
	c.history = append(c.history, Sample{Step: step, Value: value, Label: label})
}
