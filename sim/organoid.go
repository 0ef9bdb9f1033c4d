package sim

import (
	"fmt"
)

// Organoid is a population of agents living in one environment.
// Agents are updated in insertion order unless a scheduler reorders them.
type Organoid struct {
	Kind string
	Env  Environment

	agents []Agent
	byID   map[AgentID]Agent
}

// NewOrganoid creates an empty organoid.
func NewOrganoid(kind string, env Environment) *Organoid {
	return &Organoid{Kind: kind, Env: env, byID: make(map[AgentID]Agent)}
}

// AddAgent appends a. IDs must be unique within the organoid.
func (o *Organoid) AddAgent(a Agent) error {
	if a == nil {
		return fmt.Errorf("agent cannot be nil")
	}
	if _, exists := o.byID[a.ID()]; exists {
		return fmt.Errorf("agent with ID %s already exists", a.ID())
	}
	o.agents = append(o.agents, a)
	o.byID[a.ID()] = a
	return nil
}

// Agents returns all agents in insertion order. The slice must not be modified.
func (o *Organoid) Agents() []Agent { return o.agents }

// Cells returns the agents that are cells, in insertion order.
func (o *Organoid) Cells() []Cell {
	cells := make([]Cell, 0, len(o.agents))
	for _, a := range o.agents {
		if c, ok := a.(Cell); ok {
			cells = append(cells, c)
		}
	}
	return cells
}

// AgentByID looks up an agent.
func (o *Organoid) AgentByID(id AgentID) (Agent, bool) {
	a, ok := o.byID[id]
	return a, ok
}

// Models returns the distinct models used by the organoid's modules, in first-use order.
func (o *Organoid) Models() []Model {
	var out []Model
	seen := make(map[Model]bool)
	for _, a := range o.agents {
		for _, m := range a.Modules() {
			mb, ok := m.(ModelBound)
			if !ok || seen[mb.Model()] {
				continue
			}
			seen[mb.Model()] = true
			out = append(out, mb.Model())
		}
	}
	return out
}

// AgentHandle is a stable reference to an agent that resolves on demand.
type AgentHandle struct {
	ID       AgentID
	Organoid *Organoid
}

// Handle returns a handle to the agent with the given ID.
func (o *Organoid) Handle(id AgentID) AgentHandle {
	return AgentHandle{ID: id, Organoid: o}
}

// Agent resolves the handle; ok is false if the agent is not present.
func (h AgentHandle) Agent() (Agent, bool) {
	if h.Organoid == nil {
		return nil, false
	}
	return h.Organoid.AgentByID(h.ID)
}
