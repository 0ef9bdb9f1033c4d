package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/inference-sim/organoid-sim/sim"
)

// csvHeader is the column layout of WriteCSV.
var csvHeader = []string{"cell_id", "kind", "step", "value", "label"}

// WriteCSV writes one row per history sample, cells in insertion order.
func WriteCSV(w io.Writer, org *sim.Organoid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range org.Cells() {
		for _, s := range c.History() {
			row := []string{
				string(c.ID()),
				string(c.Kind()),
				strconv.Itoa(s.Step),
				strconv.FormatFloat(s.Value, 'g', -1, 64),
				s.Label,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// CellHistory is the JSON export of one cell.
type CellHistory struct {
	ID       sim.AgentID        `json:"id"`
	Kind     sim.CellKind       `json:"kind"`
	Position []float64          `json:"position"`
	Summary  sim.HistorySummary `json:"summary"`
	History  []sim.Sample       `json:"history"`
}

// HistoryExport is the document written by WriteJSON.
type HistoryExport struct {
	Organoid    string        `json:"organoid"`
	Environment string        `json:"environment"`
	Cells       []CellHistory `json:"cells"`
}

// WriteJSON writes every cell's history and summary as one indented JSON document.
func WriteJSON(w io.Writer, org *sim.Organoid) error {
	doc := HistoryExport{Organoid: org.Kind, Environment: org.Env.Kind()}
	for _, c := range org.Cells() {
		h := c.History()
		if h == nil {
			h = []sim.Sample{}
		}
		doc.Cells = append(doc.Cells, CellHistory{
			ID:       c.ID(),
			Kind:     c.Kind(),
			Position: c.Position(),
			Summary:  sim.SummarizeHistory(c),
			History:  h,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return nil
}
