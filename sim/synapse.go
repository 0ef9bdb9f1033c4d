package sim

// DefaultSynapseWeight is the initial weight of a newly wired synapse.
const DefaultSynapseWeight = 0.5

// Synapse connects a presynaptic neuron to a postsynaptic one.
type Synapse struct {
	Pre    *SynapticPlasticityCell
	Post   *SynapticPlasticityCell
	Weight float64
}

// NewSynapse creates a synapse with DefaultSynapseWeight.
func NewSynapse(pre, post *SynapticPlasticityCell) *Synapse {
	return &Synapse{Pre: pre, Post: post, Weight: DefaultSynapseWeight}
}

// Transmit depolarizes the postsynaptic cell by Weight when the presynaptic
// cell is at or above its threshold. Returns true if a transmission happened.
func (s *Synapse) Transmit() bool {
	if !s.Pre.Firing() {
		return false
	}
	s.Post.Depolarize(s.Weight)
	return true
}
