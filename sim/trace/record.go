// Package trace provides scheduler decision recording for simulation analysis.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// UpdateRecord captures whether one agent was updated in one step, and why.
type UpdateRecord struct {
	Step    int
	AgentID string
	Order   int // position of the agent in this step's update order
	Updated bool
	Reason  string
}

// StepRecord captures one completed step.
type StepRecord struct {
	Step    int
	Updated int
	Skipped int
}
