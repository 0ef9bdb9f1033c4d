package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/organoid-sim/sim/trace"
)

// DefaultSteps is the number of steps simulated when a scenario sets none.
const DefaultSteps = 10

// Scenario is a complete simulation setup, loadable from a YAML file.
type Scenario struct {
	Name        string            `yaml:"name"`
	Seed        int64             `yaml:"seed"`
	Steps       int               `yaml:"steps"`
	Environment EnvironmentConfig `yaml:"environment"`
	Organoid    OrganoidConfig    `yaml:"organoid"`
	Model       ModelConfig       `yaml:"model"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Trace       string            `yaml:"trace"`
}

// LoadScenario reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
// A relative model path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if sc.Model.Path != "" && !filepath.IsAbs(sc.Model.Path) {
		sc.Model.Path = filepath.Join(filepath.Dir(path), sc.Model.Path)
	}
	if sc.Steps == 0 {
		sc.Steps = DefaultSteps
	}
	return &sc, nil
}

// Validate checks every section of the scenario.
func (s *Scenario) Validate() error {
	if s.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", s.Steps)
	}
	if s.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	for _, d := range s.Model.InputShape {
		if d <= 0 {
			return fmt.Errorf("model.input_shape dimensions must be positive, got %v", s.Model.InputShape)
		}
	}
	if !trace.IsValidTraceLevel(s.Trace) {
		return fmt.Errorf("unknown trace level %q", s.Trace)
	}
	if err := s.Environment.Validate(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if err := s.Organoid.Validate(); err != nil {
		return fmt.Errorf("organoid: %w", err)
	}
	if err := s.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// Simulation is a scenario's built object graph, ready to be scheduled.
type Simulation struct {
	Scenario *Scenario
	RNG      *PartitionedRNG
	Env      Environment
	Model    Model
	Organoid *Organoid
}

// Build validates s and constructs the model, environment and organoid.
// The model backend must be registered (import sim/model).
func (s *Scenario) Build() (*Simulation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	model, err := NewModel(s.Model)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	return s.BuildWithModel(model)
}

// BuildWithModel is Build with an already constructed model.
func (s *Scenario) BuildWithModel(model Model) (*Simulation, error) {
	rng := NewPartitionedRNG(NewSimulationKey(s.Seed))
	env, err := NewEnvironmentFromConfig(s.Environment, rng.ForSubsystem(SubsystemEnvironment))
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	org, err := BuildOrganoid(s.Organoid, env, model, rng)
	if err != nil {
		return nil, fmt.Errorf("organoid: %w", err)
	}
	return &Simulation{Scenario: s, RNG: rng, Env: env, Model: model, Organoid: org}, nil
}

// NewScheduler creates the scenario's scheduler over the built organoid.
func (sim *Simulation) NewScheduler(opts SchedulerOptions) Scheduler {
	return NewScheduler(sim.Scenario.Scheduler, sim.Organoid, sim.RNG.ForSubsystem(SubsystemScheduler), opts)
}
