package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Stage names accepted by a run request. Gold always runs the quality gate
// first; the gate is not independently addressable.
type Stage string

const (
	StageBronze Stage = "bronze"
	StageSilver Stage = "silver"
	StageGold   Stage = "gold"
)

// BronzeLoader lands the three source collections.
type BronzeLoader interface {
	LoadProducts(ctx context.Context) (int, error)
	LoadUsers(ctx context.Context) (int, error)
	LoadCarts(ctx context.Context) (int, error)
}

// SilverTransformer rewrites the typed silver tables from raw payloads.
type SilverTransformer interface {
	TransformProducts(ctx context.Context) (int, error)
	TransformUsers(ctx context.Context) (int, error)
	TransformCarts(ctx context.Context) (int, error)
}

// QualityGate re-asserts the silver invariants before gold runs.
type QualityGate interface {
	Validate(ctx context.Context) error
}

// GoldLoader materializes the dimensional model, dims before fact.
type GoldLoader interface {
	LoadDimUsers(ctx context.Context) (int, error)
	LoadDimProducts(ctx context.Context) (int, error)
	LoadDimDates(ctx context.Context) (int, error)
	LoadFactSales(ctx context.Context) (written, skipped int, err error)
}

// RunReport summarizes one pipeline run for the caller.
type RunReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Bronze     map[string]int `json:"bronze,omitempty"`
	Silver     map[string]int `json:"silver,omitempty"`
	Gold       map[string]int `json:"gold,omitempty"`
	// SkippedFactRows counts sale rows excluded from the fact load under
	// tolerant resolution. Always zero under strict resolution.
	SkippedFactRows int `json:"skipped_fact_rows"`
}

// Runner sequences bronze, silver, the quality gate and gold strictly: each
// stage fully materializes before the next starts. Any stage error halts the
// run. The runner never retries; run-level retry policy belongs to whatever
// schedules it.
type Runner struct {
	bronze BronzeLoader
	silver SilverTransformer
	gate   QualityGate
	gold   GoldLoader
	logger *log.Logger
}

func NewRunner(bronze BronzeLoader, silver SilverTransformer, gate QualityGate, gold GoldLoader, logger *log.Logger) *Runner {
	return &Runner{bronze: bronze, silver: silver, gate: gate, gold: gold, logger: logger}
}

// Run executes the requested stages in medallion order. An empty stage list
// means a full run.
func (r *Runner) Run(ctx context.Context, stages []Stage) (*RunReport, error) {
	wanted := map[Stage]bool{StageBronze: true, StageSilver: true, StageGold: true}
	if len(stages) > 0 {
		wanted = make(map[Stage]bool, len(stages))
		for _, s := range stages {
			wanted[s] = true
		}
	}

	report := &RunReport{StartedAt: time.Now().UTC()}

	if wanted[StageBronze] {
		if err := r.runBronze(ctx, report); err != nil {
			return report, err
		}
	}
	if wanted[StageSilver] {
		if err := r.runSilver(ctx, report); err != nil {
			return report, err
		}
	}
	if wanted[StageGold] {
		if err := r.runGold(ctx, report); err != nil {
			return report, err
		}
	}

	report.FinishedAt = time.Now().UTC()
	r.logger.Printf("INFO: pipeline: run finished in %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report, nil
}

func (r *Runner) runBronze(ctx context.Context, report *RunReport) error {
	started := time.Now()
	report.Bronze = make(map[string]int)

	steps := []struct {
		name string
		load func(context.Context) (int, error)
	}{
		{"products", r.bronze.LoadProducts},
		{"users", r.bronze.LoadUsers},
		{"carts", r.bronze.LoadCarts},
	}
	for _, step := range steps {
		count, err := step.load(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: bronze stage: %w", err)
		}
		report.Bronze[step.name] = count
	}
	r.logger.Printf("INFO: pipeline: bronze stage done in %s", time.Since(started).Round(time.Millisecond))
	return nil
}

func (r *Runner) runSilver(ctx context.Context, report *RunReport) error {
	started := time.Now()
	report.Silver = make(map[string]int)

	steps := []struct {
		name      string
		transform func(context.Context) (int, error)
	}{
		{"products", r.silver.TransformProducts},
		{"users", r.silver.TransformUsers},
		{"carts", r.silver.TransformCarts},
	}
	for _, step := range steps {
		count, err := step.transform(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: silver stage: %w", err)
		}
		report.Silver[step.name] = count
	}
	r.logger.Printf("INFO: pipeline: silver stage done in %s", time.Since(started).Round(time.Millisecond))
	return nil
}

func (r *Runner) runGold(ctx context.Context, report *RunReport) error {
	started := time.Now()

	// The gate guards every gold load, whatever subset of stages ran before.
	if err := r.gate.Validate(ctx); err != nil {
		return fmt.Errorf("pipeline: quality gate: %w", err)
	}

	report.Gold = make(map[string]int)
	steps := []struct {
		name string
		load func(context.Context) (int, error)
	}{
		{"dim_user", r.gold.LoadDimUsers},
		{"dim_product", r.gold.LoadDimProducts},
		{"dim_date", r.gold.LoadDimDates},
	}
	for _, step := range steps {
		count, err := step.load(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: gold stage: %w", err)
		}
		report.Gold[step.name] = count
	}

	written, skipped, err := r.gold.LoadFactSales(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: gold stage: %w", err)
	}
	report.Gold["fact_sales"] = written
	report.SkippedFactRows = skipped

	r.logger.Printf("INFO: pipeline: gold stage done in %s", time.Since(started).Round(time.Millisecond))
	return nil
}
