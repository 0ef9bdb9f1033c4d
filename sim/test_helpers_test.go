package sim

import (
	"context"
	"fmt"
	"math/rand"
)

// constModel always predicts values.
func constModel(values ...float64) *FuncModel {
	return &FuncModel{
		Label: "const",
		Fn: func(context.Context, []float64) ([]float64, error) {
			return append([]float64(nil), values...), nil
		},
	}
}

// echoModel predicts its own first input.
func echoModel() *FuncModel {
	return &FuncModel{
		Label: "echo",
		Fn: func(_ context.Context, in []float64) ([]float64, error) {
			return []float64{in[0]}, nil
		},
	}
}

// failingModel always errors.
func failingModel() *FuncModel {
	return &FuncModel{
		Label: "failing",
		Fn: func(context.Context, []float64) ([]float64, error) {
			return nil, fmt.Errorf("boom")
		},
	}
}

func testEnv(seed int64) *BaseEnvironment {
	return NewEnvironment(DefaultDimensions, DefaultSize, rand.New(rand.NewSource(seed)))
}

// spikingOrganoid builds n spiking neurons at the origin driven by model.
func spikingOrganoid(n int, model Model) *Organoid {
	org := NewOrganoid(string(KindSpikingNeuron), testEnv(1))
	for i := 0; i < n; i++ {
		c := NewSpikingNeuronCell(CellID(i), []float64{0, 0, 0}, 1.0)
		c.AddModule(NewSpikingNeuronModule(model))
		_ = org.AddAgent(c)
	}
	return org
}

// orderModule appends the ID of every agent it runs on.
type orderModule struct {
	log *[]AgentID
}

func (m orderModule) Run(_ context.Context, a Agent) error {
	*m.log = append(*m.log, a.ID())
	return nil
}

// orderedAgents builds plain agents with the given IDs that log their update order.
func orderedAgents(log *[]AgentID, ids ...string) *Organoid {
	org := NewOrganoid("plain", testEnv(1))
	for _, id := range ids {
		a := NewAgent(AgentID(id), []float64{0, 0, 0})
		a.AddModule(orderModule{log: log})
		_ = org.AddAgent(a)
	}
	return org
}

func histories(org *Organoid) map[AgentID][]Sample {
	out := make(map[AgentID][]Sample)
	for _, c := range org.Cells() {
		out[c.ID()] = append([]Sample(nil), c.History()...)
	}
	return out
}

func float64Ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
