package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/organoid-sim/sim"
)

var (
	describeProperties bool
	describeTruncate   int
	describeDPI        int
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the organoid structure as Graphviz DOT",
	Long: "Build the scenario's organoid without simulating it and print its environment, cells, " +
		"modules and models as a Graphviz digraph. Render it with: organoid-sim describe ... | dot -Tpng -o organoid.png",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := resolveScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s, err := sc.Build()
		if err != nil {
			logrus.Fatalf("Failed to build scenario: %v", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), sim.RenderDOT(s.Organoid, sim.DOTOptions{
			ShowProperties: describeProperties,
			Truncate:       describeTruncate,
			DPI:            describeDPI,
		}))
	},
}

func init() {
	addScenarioFlags(describeCmd)
	describeCmd.Flags().BoolVar(&describeProperties, "properties", true, "Show geometry, positions and input shapes")
	describeCmd.Flags().IntVar(&describeTruncate, "truncate", sim.DefaultTruncate, "Maximum cells drawn; 0 draws all")
	describeCmd.Flags().IntVar(&describeDPI, "dpi", 300, "Graph DPI attribute; 0 omits it")

	rootCmd.AddCommand(describeCmd)
}
