package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/organoid-sim/sim"
)

var (
	watchURL   string
	watchSteps int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live step snapshots streamed by `run --serve`",
	Run: func(cmd *cobra.Command, args []string) {
		if err := watch(cmd.Context(), watchURL, cmd.OutOrStdout(), watchSteps); err != nil {
			logrus.Fatalf("Watch failed: %v", err)
		}
	},
}

// watch reads snapshots from url and prints one summary line per step until
// the server closes the stream normally, the final step arrives or maxSteps
// lines were printed (0 means unlimited). Any other closure before the final
// step is an error.
func watch(ctx context.Context, url string, w io.Writer, maxSteps int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	var last sim.StepSnapshot
	for n := 0; maxSteps == 0 || n < maxSteps; n++ {
		var snap sim.StepSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("stream closed before final step (%d/%d): %w", last.Step, last.Steps, err)
		}
		last = snap
		fmt.Fprintln(w, summarizeSnapshot(snap))
		if snap.Step >= snap.Steps {
			return nil
		}
	}
	return nil
}

func summarizeSnapshot(snap sim.StepSnapshot) string {
	values := make([]float64, len(snap.Cells))
	updated := 0
	for i, c := range snap.Cells {
		values[i] = c.Value
		if c.Updated {
			updated++
		}
	}
	line := fmt.Sprintf("[step %05d/%05d] cells=%d updated=%d", snap.Step, snap.Steps, len(snap.Cells), updated)
	if len(values) > 0 {
		line += fmt.Sprintf(" mean=%.4f min=%.4f max=%.4f", stat.Mean(values, nil), floats.Min(values), floats.Max(values))
	}
	return line
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws", "WebSocket URL of a running `run --serve`")
	watchCmd.Flags().IntVar(&watchSteps, "steps", 0, "Stop after this many snapshots; 0 waits for the final step")

	rootCmd.AddCommand(watchCmd)
}
