package sim

import (
	"fmt"
	"math"
	"strings"
)

// DefaultTruncate is the number of cells RenderDOT draws before eliding.
const DefaultTruncate = 10

// DOTOptions controls RenderDOT output.
type DOTOptions struct {
	// ShowProperties adds geometry, positions and input shapes to node labels.
	ShowProperties bool
	// Truncate limits the drawn cells: the first Truncate-1 cells, an
	// ellipsis node and the last cell. Zero or negative draws every cell.
	Truncate int
	// DPI is emitted as a graph attribute when positive.
	DPI int
}

// moduleNamer is implemented by modules with a display name.
type moduleNamer interface {
	Name() string
}

func moduleName(m Module) string {
	if n, ok := m.(moduleNamer); ok {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", m), "*")
}

// RenderDOT produces a Graphviz DOT representation of the organoid structure:
// environment, organoid, cells, their modules and the models they use.
func RenderDOT(org *Organoid, opts DOTOptions) string {
	var b strings.Builder
	b.WriteString("digraph organoid {\n")
	if opts.DPI > 0 {
		fmt.Fprintf(&b, "  dpi=%d;\n", opts.DPI)
	}
	b.WriteString("  node [fontname=\"Helvetica\"];\n\n")

	envLabel := "Environment: " + org.Env.Kind()
	orgLabel := "Organoid: " + org.Kind
	if opts.ShowProperties {
		envLabel += fmt.Sprintf("\nDimensions: %d\nSize: %g", org.Env.Dimensions(), org.Env.Size())
		orgLabel += fmt.Sprintf("\nAgents: %d", len(org.Agents()))
	}
	fmt.Fprintf(&b, "  \"env\" [label=%q, shape=rectangle];\n", envLabel)
	fmt.Fprintf(&b, "  \"organoid\" [label=%q];\n", orgLabel)
	b.WriteString("  \"env\" -> \"organoid\";\n\n")

	models := org.Models()
	modelIDs := make(map[Model]string, len(models))
	for i, m := range models {
		id := fmt.Sprintf("model_%d", i)
		modelIDs[m] = id
		label := m.Name()
		if opts.ShowProperties {
			label += fmt.Sprintf("\nInput Shape: %v", m.InputShape())
		}
		fmt.Fprintf(&b, "  %q [label=%q, shape=rectangle];\n", id, label)
	}
	if len(models) > 0 {
		b.WriteString("  { rank=same;")
		for _, m := range models {
			fmt.Fprintf(&b, " %q;", modelIDs[m])
		}
		b.WriteString(" }\n")
	}
	b.WriteString("\n")

	agents := org.Agents()
	var rank []string
	for i := 0; i < len(agents); i++ {
		if opts.Truncate > 0 && len(agents) > opts.Truncate && i == opts.Truncate-1 {
			fmt.Fprintf(&b, "  \"ellipsis\" [label=\"...\", shape=none];\n")
			b.WriteString("  \"organoid\" -> \"ellipsis\" [style=invis];\n")
			rank = append(rank, "ellipsis")
			i = len(agents) - 1
		}
		a := agents[i]
		id := string(a.ID())
		rank = append(rank, id)

		label := fmt.Sprintf("Cell %d: %s", i+1, agentKind(a))
		if opts.ShowProperties {
			label += "\nPosition: " + formatPosition(a.Position())
		}
		fmt.Fprintf(&b, "  %q [label=%q];\n", id, label)
		fmt.Fprintf(&b, "  \"organoid\" -> %q;\n", id)

		for j, m := range a.Modules() {
			modID := fmt.Sprintf("%s_mod_%d", id, j)
			fmt.Fprintf(&b, "  %q [label=%q];\n", modID, fmt.Sprintf("Module %d: %s", j+1, moduleName(m)))
			fmt.Fprintf(&b, "  %q -> %q;\n", id, modID)
			if mb, ok := m.(ModelBound); ok {
				fmt.Fprintf(&b, "  %q -> %q [dir=back];\n", modID, modelIDs[mb.Model()])
			}
		}
	}
	if len(rank) > 0 {
		b.WriteString("  { rank=same;")
		for _, id := range rank {
			fmt.Fprintf(&b, " %q;", id)
		}
		b.WriteString(" }\n")
	}

	b.WriteString("}\n")
	return b.String()
}

func agentKind(a Agent) string {
	if c, ok := a.(Cell); ok {
		return string(c.Kind())
	}
	return "agent"
}

func formatPosition(pos []float64) string {
	parts := make([]string, len(pos))
	for i, x := range pos {
		parts[i] = fmt.Sprintf("%g", math.Round(x*100)/100)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
