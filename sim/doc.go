// Package sim provides the core stepwise organoid simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - agent.go: Agent and Module interfaces, and the staged Infer/Apply split
//   - cells.go: the cell types, their state and what each records per step
//   - scheduler.go: the step loop and the sequential, stochastic, priority and parallel policies
//
// # Architecture
//
// A Scenario (scenario.go) describes an Environment, an Organoid of cells and
// the Model that drives the cells' ML modules. Every step the scheduler updates
// the environment, then the agents it selects. Each ML module collects input
// from its cell, runs Model.Predict and applies the prediction to the cell.
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/model/: Go-native model backends loaded from YAML model files
//   - sim/store/: SQLite run persistence and CSV/JSON history export
//   - sim/notify/: WebSocket streaming of step snapshots
//   - sim/trace/: Update decision trace recording
//
// sim/model registers its loader via init() by setting NewModelFunc.
//
// # Key Interfaces
//
//   - Model: predict a flat output vector from a flat input vector
//   - Module / StagedModule: per-step cell behavior, optionally split for parallel inference
//   - Environment: geometry, conditions and per-step updates
//   - Scheduler: advance an organoid a number of steps
//   - StepObserver: receive a StepSnapshot after every step
package sim
