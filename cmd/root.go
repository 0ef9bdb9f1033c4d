package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/organoid-sim/sim"
	_ "github.com/inference-sim/organoid-sim/sim/model" // registers sim.NewModelFunc
	"github.com/inference-sim/organoid-sim/sim/notify"
	"github.com/inference-sim/organoid-sim/sim/store"
	"github.com/inference-sim/organoid-sim/sim/trace"
)

var (
	// Scenario selection
	scenarioPath     string // Path to a scenario YAML file
	presetName       string // Name of a preset in the defaults file
	defaultsFilePath string // Path to the defaults file holding presets

	// Scenario overrides (applied only when the flag is set)
	seed      int64  // Master seed
	numSteps  int    // Number of steps to simulate
	scheduler string // Scheduler policy
	workers   int    // Parallel scheduler inference workers

	// Outputs
	logLevel        string        // Log verbosity level
	traceLevel      string        // Update trace level
	historyCSVPath  string        // Write cell histories as CSV
	historyJSONPath string        // Write cell histories as JSON
	dbPath          string        // SQLite database to store the run in
	dotPath         string        // Write the organoid structure as DOT
	serveAddr       string        // Stream step snapshots over WebSocket at this address
	stepDelay       time.Duration // Pause between steps
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "organoid-sim",
	Short: "Stepwise organoid simulator driven by ML models",
}

// runCmd executes the simulation using a scenario and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an organoid simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		sc, err := resolveScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := executeRun(ctx, sc, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// resolveScenario loads the scenario named by --scenario or --preset and
// applies the override flags the user set.
func resolveScenario(cmd *cobra.Command) (*sim.Scenario, error) {
	var (
		sc  *sim.Scenario
		err error
	)
	switch {
	case scenarioPath != "" && presetName != "":
		return nil, fmt.Errorf("--scenario and --preset are mutually exclusive")
	case scenarioPath != "":
		sc, err = sim.LoadScenario(scenarioPath)
	case presetName != "":
		sc, err = GetPreset(defaultsFilePath, presetName)
	default:
		return nil, fmt.Errorf("one of --scenario or --preset is required")
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		sc.Seed = seed
	}
	if flags.Changed("steps") {
		sc.Steps = numSteps
	}
	if flags.Changed("scheduler") {
		sc.Scheduler.Policy = scheduler
	}
	if flags.Changed("workers") {
		sc.Scheduler.Workers = workers
	}
	if flags.Changed("trace") {
		sc.Trace = traceLevel
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

// executeRun builds and simulates sc, prints metrics to out and writes the
// outputs selected by flags.
func executeRun(ctx context.Context, sc *sim.Scenario, out io.Writer) error {
	s, err := sc.Build()
	if err != nil {
		return err
	}
	logrus.Infof("Built %s organoid with %d cells in a %s environment (seed=%d)",
		s.Organoid.Kind, len(s.Organoid.Agents()), s.Env.Kind(), sc.Seed)

	if dotPath != "" {
		dot := sim.RenderDOT(s.Organoid, sim.DOTOptions{ShowProperties: true, Truncate: sim.DefaultTruncate})
		if err := os.WriteFile(dotPath, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write DOT: %w", err)
		}
	}

	metrics := sim.NewMetrics()
	opts := sim.SchedulerOptions{Metrics: metrics, StepDelay: stepDelay}
	var st *trace.SimulationTrace
	if sc.Trace != "" && trace.TraceLevel(sc.Trace) != trace.TraceLevelNone {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(sc.Trace)})
		opts.Trace = st
	}

	if serveAddr != "" {
		hub := notify.NewHub()
		defer hub.Close()
		srv := startServer(serveAddr, hub)
		defer srv.Close()
		opts.Observers = append(opts.Observers, hub)
	}

	if err := s.NewScheduler(opts).Simulate(ctx, sc.Steps); err != nil {
		return err
	}

	metrics.Print(out, s.Organoid)
	if st != nil {
		printTraceSummary(out, trace.Summarize(st))
	}
	return writeOutputs(ctx, sc, s, metrics)
}

func startServer(addr string, hub *notify.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("websocket server: %v", err)
		}
	}()
	logrus.Infof("Streaming steps on ws://%s/ws", addr)
	return srv
}

func writeOutputs(ctx context.Context, sc *sim.Scenario, s *sim.Simulation, m *sim.Metrics) error {
	if historyCSVPath != "" {
		if err := writeFile(historyCSVPath, func(w io.Writer) error { return store.WriteCSV(w, s.Organoid) }); err != nil {
			return err
		}
	}
	if historyJSONPath != "" {
		if err := writeFile(historyJSONPath, func(w io.Writer) error { return store.WriteJSON(w, s.Organoid) }); err != nil {
			return err
		}
	}
	if dbPath != "" {
		db, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		policy := sc.Scheduler.Policy
		if policy == "" {
			policy = sim.PolicySequential
		}
		id, err := db.SaveRun(ctx, store.RunInfo{
			Name:        sc.Name,
			Organoid:    s.Organoid.Kind,
			Environment: s.Env.Kind(),
			Scheduler:   policy,
			Seed:        sc.Seed,
		}, s.Organoid, m)
		if err != nil {
			return err
		}
		logrus.Infof("Stored run %s in %s", id, dbPath)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Update Trace ===")
	fmt.Fprintf(w, "Decisions            : %d\n", s.TotalDecisions)
	fmt.Fprintf(w, "Updated              : %d\n", s.UpdatedCount)
	fmt.Fprintf(w, "Skipped              : %d\n", s.SkippedCount)
	fmt.Fprintf(w, "Mean Updates/Step    : %.2f\n", s.MeanUpdatesPerStep)
	fmt.Fprintf(w, "Unique Agents        : %d\n", s.UniqueAgents)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	addRunFlags(runCmd)

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the scenario, override and output flags of `run`.
func addRunFlags(c *cobra.Command) {
	addScenarioFlags(c)

	c.Flags().Int64Var(&seed, "seed", 42, "Master seed (overrides the scenario)")
	c.Flags().IntVar(&numSteps, "steps", sim.DefaultSteps, "Number of steps to simulate (overrides the scenario)")
	c.Flags().StringVar(&scheduler, "scheduler", "", "Scheduler policy: sequential, stochastic, priority, parallel (overrides the scenario)")
	c.Flags().IntVar(&workers, "workers", 0, "Parallel scheduler inference workers; 0 means GOMAXPROCS")
	c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	c.Flags().StringVar(&traceLevel, "trace", "", "Update trace level: none, updates (overrides the scenario)")

	c.Flags().StringVar(&historyCSVPath, "history-csv", "", "Write cell histories to this CSV file")
	c.Flags().StringVar(&historyJSONPath, "history-json", "", "Write cell histories to this JSON file")
	c.Flags().StringVar(&dbPath, "db", "", "Store the run in this SQLite database")
	c.Flags().StringVar(&dotPath, "dot", "", "Write the organoid structure to this Graphviz DOT file")
	c.Flags().StringVar(&serveAddr, "serve", "", "Stream step snapshots over WebSocket at this address (e.g. localhost:8080)")
	c.Flags().DurationVar(&stepDelay, "step-delay", 0, "Pause between steps, for watching live")
}

// addScenarioFlags registers the flags selecting a scenario.
func addScenarioFlags(c *cobra.Command) {
	c.Flags().StringVar(&scenarioPath, "scenario", "", "Path to a scenario YAML file")
	c.Flags().StringVar(&presetName, "preset", "", "Name of a preset scenario in the defaults file")
	c.Flags().StringVar(&defaultsFilePath, "defaults-filepath", "defaults.yaml", "Path to the defaults file holding presets")
}
