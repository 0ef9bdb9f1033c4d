package sim

import (
	"context"
	"fmt"
)

// AgentID identifies an agent within an organoid.
type AgentID string

// CellID returns the conventional ID for the i-th cell built by an organoid constructor.
func CellID(i int) AgentID {
	return AgentID(fmt.Sprintf("cell_%d", i))
}

// Module is a unit of behavior attached to an agent and run once per update.
type Module interface {
	Run(ctx context.Context, a Agent) error
}

// StagedModule splits Run into a read-only inference half and a mutating half.
// Infer must not mutate the agent; it may run concurrently with other agents' Infer.
// Run(ctx, a) is equivalent to Apply(a, Infer(ctx, a)).
type StagedModule interface {
	Module
	Infer(ctx context.Context, a Agent) ([]float64, error)
	Apply(a Agent, prediction []float64) error
}

// Agent is any entity the scheduler advances.
//
// Update runs one step. Commit runs one step using predictions already inferred
// for the agent's staged modules: inferred[i] belongs to Modules()[i] and is nil
// for modules that should run normally.
type Agent interface {
	ID() AgentID
	Position() []float64
	Modules() []Module
	AddModule(m Module)
	Update(ctx context.Context, step int) error
	Commit(ctx context.Context, step int, inferred [][]float64) error
}

// BaseAgent is a plain agent: it runs its modules and keeps no history.
type BaseAgent struct {
	id       AgentID
	position []float64
	modules  []Module
}

// NewAgent creates a BaseAgent. The position slice is copied.
func NewAgent(id AgentID, position []float64) *BaseAgent {
	return &BaseAgent{id: id, position: append([]float64(nil), position...)}
}

func (a *BaseAgent) ID() AgentID         { return a.id }
func (a *BaseAgent) Position() []float64 { return a.position }
func (a *BaseAgent) Modules() []Module   { return a.modules }

func (a *BaseAgent) AddModule(m Module) {
	a.modules = append(a.modules, m)
}

func (a *BaseAgent) Update(ctx context.Context, step int) error {
	return a.Commit(ctx, step, nil)
}

func (a *BaseAgent) Commit(ctx context.Context, _ int, inferred [][]float64) error {
	return runModules(ctx, a, a.modules, inferred)
}

// runModules runs modules in order against self. self must be the outermost
// agent value (not an embedded BaseAgent) so modules can type-assert capabilities.
func runModules(ctx context.Context, self Agent, modules []Module, inferred [][]float64) error {
	for i, m := range modules {
		var err error
		if i < len(inferred) && inferred[i] != nil {
			staged, ok := m.(StagedModule)
			if !ok {
				return fmt.Errorf("agent %s: module %d (%T) received a prediction but is not staged", self.ID(), i, m)
			}
			err = staged.Apply(self, inferred[i])
		} else {
			err = m.Run(ctx, self)
		}
		if err != nil {
			return fmt.Errorf("agent %s: module %d (%T): %w", self.ID(), i, m, err)
		}
	}
	return nil
}

// Infer runs the inference half of every staged module of a without mutating it.
// The result is suitable for a.Commit. Returns nil when a has no staged modules.
func Infer(ctx context.Context, a Agent) ([][]float64, error) {
	modules := a.Modules()
	var out [][]float64
	for i, m := range modules {
		staged, ok := m.(StagedModule)
		if !ok {
			continue
		}
		pred, err := staged.Infer(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("agent %s: module %d (%T): %w", a.ID(), i, m, err)
		}
		if out == nil {
			out = make([][]float64, len(modules))
		}
		out[i] = pred
	}
	return out, nil
}
