// Tracks simulation-wide counters and per-cell history summaries.

package sim

import (
	"fmt"
	"io"
	"time"
)

// Metrics aggregates statistics about the simulation for final reporting.
type Metrics struct {
	Steps          int           // Number of completed steps
	AgentUpdates   int           // Number of agent updates performed
	SkippedUpdates int           // Number of agent updates skipped by the scheduler
	Spikes         int           // Total spikes fired by excitable cells
	WallTime       time.Duration // Wall-clock time spent in Simulate
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// spiker is implemented by cells that count their own spikes.
type spiker interface {
	Spikes() int
}

// CountSpikes sums the spike counters of org's cells.
func CountSpikes(org *Organoid) int {
	total := 0
	for _, a := range org.Agents() {
		if s, ok := a.(spiker); ok {
			total += s.Spikes()
		}
	}
	return total
}

// Print writes aggregated metrics followed by one summary line per cell.
func (m *Metrics) Print(w io.Writer, org *Organoid) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Organoid             : %s (%d agents)\n", org.Kind, len(org.Agents()))
	fmt.Fprintf(w, "Steps                : %d\n", m.Steps)
	fmt.Fprintf(w, "Agent Updates        : %d\n", m.AgentUpdates)
	fmt.Fprintf(w, "Skipped Updates      : %d\n", m.SkippedUpdates)
	fmt.Fprintf(w, "Spikes               : %d\n", m.Spikes)
	fmt.Fprintf(w, "Wall Time            : %s\n", m.WallTime)
	if m.Steps > 0 {
		fmt.Fprintf(w, "Updates per Step     : %.2f\n", float64(m.AgentUpdates)/float64(m.Steps))
	}

	summaries := SummarizeOrganoid(org)
	if len(summaries) == 0 {
		return
	}
	fmt.Fprintln(w, "=== Cell Histories ===")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-10s n=%-5d mean=%-10.4f std=%-10.4f min=%-10.4f max=%-10.4f last=%.4f\n",
			s.ID, s.Samples, s.Mean, s.StdDev, s.Min, s.Max, s.Last)
	}
}
