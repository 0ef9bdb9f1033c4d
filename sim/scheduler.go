package sim

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/organoid-sim/sim/trace"
)

// Scheduler drives an organoid through a number of discrete steps. Each step
// updates the environment first and then the agents selected by the policy.
// Steps are numbered from 1. Simulate stops between steps when ctx is done.
type Scheduler interface {
	Simulate(ctx context.Context, steps int) error
}

// Scheduler policy names.
const (
	PolicySequential = "sequential"
	PolicyStochastic = "stochastic"
	PolicyPriority   = "priority"
	PolicyParallel   = "parallel"
)

// ValidSchedulers is the set of recognized scheduler policy names.
var ValidSchedulers = map[string]bool{
	"": true, PolicySequential: true, PolicyStochastic: true, PolicyPriority: true, PolicyParallel: true,
}

// IsValidScheduler returns true if name is a recognized scheduler policy.
func IsValidScheduler(name string) bool {
	return ValidSchedulers[name]
}

// DefaultUpdateProbability is the per-agent update chance of the stochastic scheduler.
const DefaultUpdateProbability = 0.5

// SchedulerConfig describes a scheduler in a scenario file.
type SchedulerConfig struct {
	Policy            string         `yaml:"policy"`
	UpdateProbability *float64       `yaml:"update_probability"`
	Workers           int            `yaml:"workers"`
	Priorities        map[string]int `yaml:"priorities"`
	// RandomPriorities draws a priority in [low, high) for every agent
	// without an explicit entry in Priorities.
	RandomPriorities []int `yaml:"random_priorities"`
}

// Validate checks policy name and parameter ranges.
func (c SchedulerConfig) Validate() error {
	if !IsValidScheduler(c.Policy) {
		return fmt.Errorf("unknown scheduler %q", c.Policy)
	}
	if p := c.UpdateProbability; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("update_probability must be in [0, 1], got %f", *p)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if r := c.RandomPriorities; len(r) != 0 && (len(r) != 2 || r[0] >= r[1]) {
		return fmt.Errorf("random_priorities must be [low, high) with low < high, got %v", r)
	}
	return nil
}

// SchedulerOptions carries the collaborators shared by every scheduler.
// All fields are optional.
type SchedulerOptions struct {
	Metrics   *Metrics
	Trace     *trace.SimulationTrace
	Observers []StepObserver
	// StepDelay pauses after each step, for pacing live observers.
	StepDelay time.Duration
}

// NewScheduler creates a Scheduler by policy name.
// Empty policy defaults to the sequential scheduler.
// Panics on unrecognized names; callers validate with SchedulerConfig.Validate first.
func NewScheduler(cfg SchedulerConfig, org *Organoid, rng *rand.Rand, opts SchedulerOptions) Scheduler {
	if !IsValidScheduler(cfg.Policy) {
		panic(fmt.Sprintf("unknown scheduler %q", cfg.Policy))
	}
	switch cfg.Policy {
	case "", PolicySequential:
		return NewSequentialScheduler(org, opts)
	case PolicyStochastic:
		p := DefaultUpdateProbability
		if cfg.UpdateProbability != nil {
			p = *cfg.UpdateProbability
		}
		return NewStochasticScheduler(org, p, rng, opts)
	case PolicyPriority:
		return NewPriorityScheduler(org, ResolvePriorities(cfg, org, rng), opts)
	case PolicyParallel:
		return NewParallelScheduler(org, cfg.Workers, opts)
	default:
		panic(fmt.Sprintf("unhandled scheduler %q", cfg.Policy))
	}
}

// ResolvePriorities merges explicit priorities with random draws for the remaining agents.
func ResolvePriorities(cfg SchedulerConfig, org *Organoid, rng *rand.Rand) map[AgentID]int {
	out := make(map[AgentID]int, len(org.Agents()))
	for _, a := range org.Agents() {
		if p, ok := cfg.Priorities[string(a.ID())]; ok {
			out[a.ID()] = p
			continue
		}
		if len(cfg.RandomPriorities) == 2 && rng != nil {
			lo, hi := cfg.RandomPriorities[0], cfg.RandomPriorities[1]
			out[a.ID()] = lo + rng.Intn(hi-lo)
		}
	}
	return out
}

// stepLoop implements the step bookkeeping shared by all schedulers.
type stepLoop struct {
	org    *Organoid
	policy string
	opts   SchedulerOptions
}

func newStepLoop(org *Organoid, policy string, opts SchedulerOptions) stepLoop {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	return stepLoop{org: org, policy: policy, opts: opts}
}

// stepFunc performs the agent phase of one step and marks updated agents.
type stepFunc func(ctx context.Context, step int, updated map[AgentID]bool) error

func (l *stepLoop) run(ctx context.Context, steps int, fn stepFunc) error {
	if steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", steps)
	}
	start := time.Now()
	defer func() {
		l.opts.Metrics.WallTime += time.Since(start)
		l.opts.Metrics.Spikes = CountSpikes(l.org)
	}()

	logrus.Infof("Starting %s simulation of %s organoid: %d agents, %d steps",
		l.policy, l.org.Kind, len(l.org.Agents()), steps)
	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logrus.Debugf("[step %05d] Step %d/%d", step, step, steps)
		l.org.Env.Update(step)

		updated := make(map[AgentID]bool, len(l.org.Agents()))
		if err := fn(ctx, step, updated); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}

		n := len(updated)
		l.opts.Metrics.Steps++
		l.opts.Metrics.AgentUpdates += n
		l.opts.Metrics.SkippedUpdates += len(l.org.Agents()) - n
		if l.opts.Trace.Enabled() {
			l.opts.Trace.RecordStep(trace.StepRecord{Step: step, Updated: n, Skipped: len(l.org.Agents()) - n})
		}
		l.notify(ctx, step, steps, updated)

		if l.opts.StepDelay > 0 && step < steps {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.opts.StepDelay):
			}
		}
	}
	logrus.Infof("Simulation ended after %d steps", steps)
	return nil
}

func (l *stepLoop) notify(ctx context.Context, step, steps int, updated map[AgentID]bool) {
	if len(l.opts.Observers) == 0 {
		return
	}
	snap := Snapshot(l.org, step, steps, updated)
	for _, o := range l.opts.Observers {
		if err := o.ObserveStep(ctx, snap); err != nil {
			logrus.Warnf("[step %05d] observer %T: %v", step, o, err)
		}
	}
}

func (l *stepLoop) traceUpdate(step, order int, a Agent, updated bool, reason string) {
	if !l.opts.Trace.Enabled() {
		return
	}
	l.opts.Trace.RecordUpdate(trace.UpdateRecord{
		Step: step, AgentID: string(a.ID()), Order: order, Updated: updated, Reason: reason,
	})
}

// updateInOrder updates agents one after another.
func (l *stepLoop) updateInOrder(ctx context.Context, step int, agents []Agent, updated map[AgentID]bool, reason func(Agent) string) error {
	for i, a := range agents {
		if err := a.Update(ctx, step); err != nil {
			return err
		}
		updated[a.ID()] = true
		l.traceUpdate(step, i, a, true, reason(a))
	}
	return nil
}

// === SequentialScheduler ===

// SequentialScheduler updates every agent each step in insertion order.
type SequentialScheduler struct {
	stepLoop
}

func NewSequentialScheduler(org *Organoid, opts SchedulerOptions) *SequentialScheduler {
	return &SequentialScheduler{newStepLoop(org, PolicySequential, opts)}
}

func (s *SequentialScheduler) Simulate(ctx context.Context, steps int) error {
	return s.run(ctx, steps, func(ctx context.Context, step int, updated map[AgentID]bool) error {
		return s.updateInOrder(ctx, step, s.org.Agents(), updated, func(Agent) string { return PolicySequential })
	})
}

// === StochasticScheduler ===

// StochasticScheduler updates each agent with a fixed probability per step.
type StochasticScheduler struct {
	stepLoop
	probability float64
	rng         *rand.Rand
}

func NewStochasticScheduler(org *Organoid, probability float64, rng *rand.Rand, opts SchedulerOptions) *StochasticScheduler {
	return &StochasticScheduler{
		stepLoop:    newStepLoop(org, PolicyStochastic, opts),
		probability: probability,
		rng:         rng,
	}
}

func (s *StochasticScheduler) Simulate(ctx context.Context, steps int) error {
	return s.run(ctx, steps, func(ctx context.Context, step int, updated map[AgentID]bool) error {
		for i, a := range s.org.Agents() {
			// Draw for every agent so the sequence does not depend on earlier outcomes.
			if s.rng.Float64() >= s.probability {
				s.traceUpdate(step, i, a, false, "stochastic-skip")
				continue
			}
			if err := a.Update(ctx, step); err != nil {
				return err
			}
			updated[a.ID()] = true
			s.traceUpdate(step, i, a, true, PolicyStochastic)
		}
		return nil
	})
}

// === PriorityScheduler ===

// PriorityScheduler updates every agent each step in descending priority.
// Agents without a priority have priority 0; ties keep insertion order.
type PriorityScheduler struct {
	stepLoop
	priorities map[AgentID]int
}

func NewPriorityScheduler(org *Organoid, priorities map[AgentID]int, opts SchedulerOptions) *PriorityScheduler {
	if priorities == nil {
		priorities = make(map[AgentID]int)
	}
	return &PriorityScheduler{stepLoop: newStepLoop(org, PolicyPriority, opts), priorities: priorities}
}

// Order returns the agents in update order.
func (s *PriorityScheduler) Order() []Agent {
	agents := append([]Agent(nil), s.org.Agents()...)
	sort.SliceStable(agents, func(i, j int) bool {
		return s.priorities[agents[i].ID()] > s.priorities[agents[j].ID()]
	})
	return agents
}

func (s *PriorityScheduler) Simulate(ctx context.Context, steps int) error {
	return s.run(ctx, steps, func(ctx context.Context, step int, updated map[AgentID]bool) error {
		return s.updateInOrder(ctx, step, s.Order(), updated, func(a Agent) string {
			return fmt.Sprintf("priority=%d", s.priorities[a.ID()])
		})
	})
}

// === ParallelScheduler ===

// ParallelScheduler runs the inference half of staged modules for all agents
// concurrently against the start-of-step state, then commits every agent
// sequentially in insertion order. Commits and their random draws happen on
// one goroutine, so results are deterministic for a fixed seed.
type ParallelScheduler struct {
	stepLoop
	workers int
}

// NewParallelScheduler bounds inference to workers goroutines; zero means GOMAXPROCS.
func NewParallelScheduler(org *Organoid, workers int, opts SchedulerOptions) *ParallelScheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelScheduler{stepLoop: newStepLoop(org, PolicyParallel, opts), workers: workers}
}

func (s *ParallelScheduler) Simulate(ctx context.Context, steps int) error {
	return s.run(ctx, steps, func(ctx context.Context, step int, updated map[AgentID]bool) error {
		agents := s.org.Agents()
		inferred := make([][][]float64, len(agents))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i, a := range agents {
			g.Go(func() error {
				pred, err := Infer(gctx, a)
				if err != nil {
					return err
				}
				inferred[i] = pred
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, a := range agents {
			if err := a.Commit(ctx, step, inferred[i]); err != nil {
				return err
			}
			updated[a.ID()] = true
			s.traceUpdate(step, i, a, true, PolicyParallel)
		}
		return nil
	})
}
