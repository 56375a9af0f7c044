// Package pipeline runs the iterative repair loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/build"
	"github.com/ppiankov/kgrepair/internal/check"
	"github.com/ppiankov/kgrepair/internal/decide"
	"github.com/ppiankov/kgrepair/internal/extract"
	"github.com/ppiankov/kgrepair/internal/interpret"
	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/store"
)

// ErrInvalidBudget is returned when max_iterations is below one.
var ErrInvalidBudget = errors.New("pipeline: max iterations must be at least 1")

// Orchestrator drives build, check, interpret and decide until the policy
// stops the loop or the iteration budget runs out.
type Orchestrator struct {
	cfg         *model.Config
	checker     check.Checker
	interpreter *interpret.Interpreter
	policy      decide.Policy
	reporter    Reporter
	metrics     *Metrics
	logger      *zap.Logger
	schemaPath  string
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithPolicy replaces the decision policy.
func WithPolicy(p decide.Policy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithMetrics records loop metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSchemaPath records the schema location in run records.
func WithSchemaPath(path string) Option {
	return func(o *Orchestrator) { o.schemaPath = path }
}

// New returns an orchestrator using checker and the settings in cfg.
func New(cfg *model.Config, checker check.Checker, opts ...Option) (*Orchestrator, error) {
	if cfg.Run.MaxIterations < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidBudget, cfg.Run.MaxIterations)
	}
	if checker == nil {
		return nil, errors.New("pipeline: checker is required")
	}
	o := &Orchestrator{
		cfg:         cfg,
		checker:     checker,
		interpreter: interpret.New(cfg.Interpret.AllowWarnings),
		policy:      decide.Decide,
		reporter:    nopReporter{},
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunFile loads facts from path and runs the loop on them.
func (o *Orchestrator) RunFile(ctx context.Context, path string) (*model.RunResult, error) {
	facts, err := extract.LoadFacts(path)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	return o.run(ctx, facts, path)
}

// Run executes the repair loop on facts. Each call is a separate run with
// its own run id and artifact directory. A checker failure or timeout
// aborts the run; exhausting the budget does not.
func (o *Orchestrator) Run(ctx context.Context, facts model.FactSet) (*model.RunResult, error) {
	return o.run(ctx, facts, "")
}

func (o *Orchestrator) run(ctx context.Context, facts model.FactSet, factsPath string) (*model.RunResult, error) {
	runID := o.cfg.Run.RunID
	if runID == "" {
		runID = store.NewRunID()
	}
	artifacts, err := store.New(o.cfg.Run.OutputDir, runID)
	if err != nil {
		return nil, err
	}
	builder := build.NewBuilder(artifacts, o.logger)
	log := o.logger.With(zap.String("run_id", runID))

	result := &model.RunResult{
		RunID:      runID,
		FactsPath:  factsPath,
		SchemaPath: o.schemaPath,
		StartedAt:  o.now().UTC(),
		StopReason: model.StopBudgetExhausted,
	}
	log.Info("run started",
		zap.Int("people", len(facts)),
		zap.Int("max_iterations", o.cfg.Run.MaxIterations))

	issues := model.NewIssueSet()
	for i := 1; i <= o.cfg.Run.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		rec, err := o.iterate(ctx, builder, i, issues, facts)
		if err != nil {
			log.Error("run aborted", zap.Int("iteration", i), zap.Error(err))
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		result.Records = append(result.Records, rec)
		result.FinalAction = rec.Action
		o.reporter.Iteration(rec)
		if o.metrics != nil {
			o.metrics.recordIteration(rec)
		}
		log.Info("iteration finished",
			zap.Int("iteration", i),
			zap.String("status", rec.Interpretation.Status.String()),
			zap.Strings("issues", rec.Interpretation.Issues.Strings()),
			zap.String("action", rec.Action.String()),
			zap.Duration("check", rec.CheckDuration))

		issues = rec.Interpretation.Issues
		if rec.Action.Terminal() {
			result.StopReason = model.StopDecision
			break
		}
	}
	result.FinishedAt = o.now().UTC()

	if err := artifacts.WriteRecord(result); err != nil {
		return nil, fmt.Errorf("write run record: %w", err)
	}
	if o.metrics != nil {
		o.metrics.recordRun(result)
	}
	o.reporter.Finished(result)
	log.Info("run finished",
		zap.Int("iterations", result.Iterations()),
		zap.String("stop_reason", string(result.StopReason)),
		zap.String("final_action", result.FinalAction.String()))
	return result, nil
}

// iterate performs one pass: build, check, interpret, decide.
func (o *Orchestrator) iterate(ctx context.Context, builder *build.Builder, iteration int, issues model.IssueSet, facts model.FactSet) (model.IterationRecord, error) {
	// 1. Build the graph for the current issues
	g, art, err := builder.Build(iteration, issues, facts)
	if err != nil {
		return model.IterationRecord{}, fmt.Errorf("build: %w", err)
	}

	// 2. Check it, bounded by the checker timeout
	start := o.now()
	res, err := check.WithTimeout(ctx, o.checker, o.cfg.Checker.Timeout, g, art.Path)
	elapsed := o.now().Sub(start)
	if err != nil {
		return model.IterationRecord{}, fmt.Errorf("check: %w", err)
	}

	// 3. Interpret the report
	interp := o.interpreter.InterpretResult(res)

	// 4. Decide what happens next
	action := o.policy(interp.Status)

	return model.IterationRecord{
		Iteration:      iteration,
		GraphPath:      art.Path,
		ArtifactCID:    art.CID,
		Triples:        g.Len(),
		IssuesIn:       issues,
		Interpretation: interp,
		Action:         action,
		CheckDuration:  elapsed,
	}, nil
}
