package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/inference-sim/organoid-sim/sim"
)

// RunInfo describes how a run was configured.
type RunInfo struct {
	Name        string
	Organoid    string
	Environment string
	Scheduler   string
	Seed        int64
}

// Run is a stored run with its final metrics.
type Run struct {
	RunInfo
	ID             string
	Steps          int
	Cells          int
	AgentUpdates   int
	SkippedUpdates int
	Spikes         int
	WallTime       time.Duration
	CreatedAt      time.Time
}

// CellSample is one stored history sample.
type CellSample struct {
	CellID string       `json:"cell_id"`
	Kind   sim.CellKind `json:"kind"`
	sim.Sample
}

// SQLiteStore stores runs and their cell histories in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun stores the run and every cell's history in one transaction and
// returns the new run's ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, info RunInfo, org *sim.Organoid, m *sim.Metrics) (string, error) {
	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cells := org.Cells()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, organoid, environment, scheduler, seed, steps, cells,
			agent_updates, skipped_updates, spikes, wall_time_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, info.Name, info.Organoid, info.Environment, info.Scheduler, info.Seed, m.Steps, len(cells),
		m.AgentUpdates, m.SkippedUpdates, m.Spikes, int64(m.WallTime), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, cell_id, kind, step, value, label) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range cells {
		for _, smp := range c.History() {
			if _, err := stmt.ExecContext(ctx, id, string(c.ID()), string(c.Kind()), smp.Step, smp.Value, smp.Label); err != nil {
				return "", fmt.Errorf("failed to insert sample %s@%d: %w", c.ID(), smp.Step, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns all stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, organoid, environment, scheduler, seed, steps, cells,
			agent_updates, skipped_updates, spikes, wall_time_ns, created_at
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			name      sql.NullString
			wallNanos int64
			created   string
		)
		if err := rows.Scan(&r.ID, &name, &r.Organoid, &r.Environment, &r.Scheduler, &r.Seed, &r.Steps, &r.Cells,
			&r.AgentUpdates, &r.SkippedUpdates, &r.Spikes, &wallNanos, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Name = name.String
		r.WallTime = time.Duration(wallNanos)
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadSamples returns the history samples of a run in the order SaveRun wrote
// them: organoid cell order, then step. An unknown run ID yields no samples.
func (s *SQLiteStore) LoadSamples(ctx context.Context, runID string) ([]CellSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_id, kind, step, value, label FROM samples
		WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []CellSample
	for rows.Next() {
		var (
			cs    CellSample
			kind  string
			label sql.NullString
		)
		if err := rows.Scan(&cs.CellID, &kind, &cs.Step, &cs.Value, &label); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		cs.Kind = sim.CellKind(kind)
		cs.Label = label.String
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
