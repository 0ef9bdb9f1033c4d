package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int
	UpdatedCount       int
	SkippedCount       int
	Steps              int
	MeanUpdatesPerStep float64
	UniqueAgents       int
	UpdateDistribution map[string]int // agent ID → count of updates
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		UpdateDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Updates)
	for _, u := range st.Updates {
		if u.Updated {
			summary.UpdatedCount++
			summary.UpdateDistribution[u.AgentID]++
		} else {
			summary.SkippedCount++
		}
	}

	summary.Steps = len(st.Steps)
	if summary.Steps > 0 {
		total := 0
		for _, s := range st.Steps {
			total += s.Updated
		}
		summary.MeanUpdatesPerStep = float64(total) / float64(summary.Steps)
	}

	summary.UniqueAgents = len(summary.UpdateDistribution)

	return summary
}
