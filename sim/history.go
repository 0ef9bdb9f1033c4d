package sim

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistorySummary condenses one cell's recorded values.
type HistorySummary struct {
	ID      AgentID  `json:"id"`
	Kind    CellKind `json:"kind"`
	Samples int      `json:"samples"`
	Mean    float64  `json:"mean"`
	StdDev  float64  `json:"stddev"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Last    float64  `json:"last"`
}

// HistoryValues extracts the recorded values of c in step order.
func HistoryValues(c Cell) []float64 {
	h := c.History()
	out := make([]float64, len(h))
	for i, s := range h {
		out[i] = s.Value
	}
	return out
}

// SummarizeHistory computes summary statistics of c's history.
// A cell without samples yields a zero summary. StdDev is the sample standard
// deviation and is zero for a single sample.
func SummarizeHistory(c Cell) HistorySummary {
	vals := HistoryValues(c)
	s := HistorySummary{ID: c.ID(), Kind: c.Kind(), Samples: len(vals)}
	if len(vals) == 0 {
		return s
	}
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	s.Last = vals[len(vals)-1]
	if len(vals) == 1 {
		s.Mean = vals[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	return s
}

// SummarizeOrganoid summarizes every cell of org in insertion order.
func SummarizeOrganoid(org *Organoid) []HistorySummary {
	cells := org.Cells()
	out := make([]HistorySummary, 0, len(cells))
	for _, c := range cells {
		out = append(out, SummarizeHistory(c))
	}
	return out
}
