package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/organoid-sim/sim/store"
)

var (
	runsDBPath  string
	runsSamples string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs stored in a SQLite database",
	Long:  "List stored runs newest first, or with --samples print one run's history as CSV-like rows.",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := store.NewSQLiteStore(runsDBPath)
		if err != nil {
			logrus.Fatalf("Failed to open %s: %v", runsDBPath, err)
		}
		defer db.Close()

		ctx := context.Background()
		if runsSamples != "" {
			err = printSamples(ctx, cmd.OutOrStdout(), db, runsSamples)
		} else {
			err = printRuns(ctx, cmd.OutOrStdout(), db)
		}
		if err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func printRuns(ctx context.Context, w io.Writer, db *store.SQLiteStore) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tORGANOID\tSCHEDULER\tSEED\tSTEPS\tCELLS\tUPDATES\tSPIKES\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.Name, r.Organoid, r.Scheduler, r.Seed, r.Steps, r.Cells, r.AgentUpdates, r.Spikes,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func printSamples(ctx context.Context, w io.Writer, db *store.SQLiteStore, runID string) error {
	samples, err := db.LoadSamples(ctx, runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples for run %q", runID)
	}
	for _, s := range samples {
		fmt.Fprintf(w, "%s,%s,%d,%g,%s\n", s.CellID, s.Kind, s.Step, s.Value, s.Label)
	}
	return nil
}

func init() {
	runsCmd.Flags().StringVar(&runsDBPath, "db", "runs.db", "SQLite database holding stored runs")
	runsCmd.Flags().StringVar(&runsSamples, "samples", "", "Print the history samples of this run ID")

	rootCmd.AddCommand(runsCmd)
}
