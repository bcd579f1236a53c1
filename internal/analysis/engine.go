// Package analysis runs the flow analysis over every method of a unit.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/config"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/flow"
)

// Engine is the main entry point for the analysis. Bodies are independent,
// so a unit is analyzed by a bounded pool of workers.
type Engine struct {
	cfg     config.Config
	opts    flow.Options
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records into m instead of unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer for per-body spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithClassifier replaces the conversion classifier.
func WithClassifier(c bound.ConversionClassifier) Option {
	return func(e *Engine) { e.opts.Classifier = c }
}

// WithRelation replaces the subtype relation used by pattern tests.
func WithRelation(r bound.TypeRelation) Option {
	return func(e *Engine) { e.opts.Relation = r }
}

// NewEngine creates a new analysis engine.
func NewEngine(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		opts:   flow.OptionsFromConfig(cfg),
		logger: slog.Default(),
		tracer: otel.Tracer("nullflow/analysis"),
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e, nil
}

// Report is the outcome of one run over a unit.
type Report struct {
	RunID string
	Unit  string
	// Results are in method order.
	Results []*flow.Result
}

// Diagnostics returns every diagnostic in method order.
func (r *Report) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, res := range r.Results {
		out = append(out, res.Diagnostics...)
	}
	return out
}

// Counts returns the number of diagnostics per code.
func (r *Report) Counts() map[diag.Code]int {
	counts := make(map[diag.Code]int)
	for _, res := range r.Results {
		for _, d := range res.Diagnostics {
			counts[d.Code]++
		}
	}
	return counts
}

// AnalyzeUnit analyzes every method of u. Cancelling ctx stops the run
// between bodies.
func (e *Engine) AnalyzeUnit(ctx context.Context, u *bound.Unit) (*Report, error) {
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID, "unit", u.Name)

	ctx, span := e.tracer.Start(ctx, "Engine.AnalyzeUnit", trace.WithAttributes(
		attribute.String("nullflow.run_id", runID),
		attribute.String("nullflow.unit", u.Name),
		attribute.Int("nullflow.methods", len(u.Methods)),
	))
	defer span.End()

	start := time.Now()
	log.Info("analysis started", "methods", len(u.Methods), "workers", e.cfg.Workers)

	results := make([]*flow.Result, len(u.Methods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, m := range u.Methods {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.analyzeMethod(gctx, m, log)
			if err != nil {
				return fmt.Errorf("method %s: %w", m.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("analysis failed", "error", err)
		return nil, err
	}

	report := &Report{RunID: runID, Unit: u.Name, Results: results}
	total := len(report.Diagnostics())
	span.SetAttributes(attribute.Int("nullflow.diagnostics", total))
	log.Info("analysis finished", "diagnostics", total, "duration", time.Since(start))
	return report, nil
}

// Analyze analyzes a single method.
func (e *Engine) Analyze(ctx context.Context, m *bound.Method) (*flow.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.analyzeMethod(ctx, m, e.logger)
}

func (e *Engine) analyzeMethod(ctx context.Context, m *bound.Method, log *slog.Logger) (*flow.Result, error) {
	_, span := e.tracer.Start(ctx, "Engine.AnalyzeMethod", trace.WithAttributes(
		attribute.String("nullflow.method", m.Name),
	))
	defer span.End()

	opts := e.opts
	opts.Logger = log
	start := time.Now()
	res, err := flow.Analyze(m, opts)
	took := time.Since(start)
	if err != nil {
		var ie *flow.InvariantError
		if errors.As(err, &ie) {
			e.metrics.InvariantFailures.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.metrics.observe(res, took)
	span.SetAttributes(
		attribute.Int("nullflow.diagnostics", len(res.Diagnostics)),
		attribute.Int("nullflow.slots", res.Stats.Slots),
		attribute.Int("nullflow.dag_nodes", res.Stats.DagNodes),
		attribute.Int("nullflow.loop_widenings", res.Stats.LoopWidenings),
	)
	log.Debug("method analyzed", "method", m.Name, "diagnostics", len(res.Diagnostics), "duration", took)
	return res, nil
}
