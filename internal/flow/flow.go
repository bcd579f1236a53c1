// Package flow runs the nullable flow analysis over one bound method body.
//
// The walker keeps one StateMap for the current program point. Branches clone
// it, merges join it, loops iterate it to a fixed point and pattern matches
// thread it through the decision DAG of the match.
package flow

import (
	"fmt"
	"log/slog"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/config"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/nullstate"
	"github.com/malphas-lang/nullflow/internal/slots"
)

// Options controls one analysis.
type Options struct {
	MaxSlotDepth      int
	MaxLoopIterations int
	MaxWalkDepth      int
	// RecordStates keeps a copy of the state before every statement and
	// expression for StateOf.
	RecordStates bool
	// Strict turns internal invariant violations into an *InvariantError
	// instead of a logged, dropped finding.
	Strict         bool
	ReportSubsumed bool

	Classifier bound.ConversionClassifier
	Relation   bound.TypeRelation
	Logger     *slog.Logger
}

// DefaultOptions returns the options of the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig copies the analysis limits out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MaxSlotDepth:      cfg.MaxSlotDepth,
		MaxLoopIterations: cfg.MaxLoopIterations,
		MaxWalkDepth:      cfg.MaxWalkDepth,
		RecordStates:      cfg.RecordStates,
		Strict:            cfg.StrictInvariants,
		ReportSubsumed:    cfg.ReportSubsumed,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSlotDepth < 1 {
		o.MaxSlotDepth = config.MaxSlotDepth
	}
	if o.MaxLoopIterations < 1 {
		o.MaxLoopIterations = config.MaxLoopIterations
	}
	if o.MaxWalkDepth < 1 {
		o.MaxWalkDepth = config.MaxWalkDepth
	}
	if o.Classifier == nil {
		o.Classifier = bound.DefaultClassifier{}
	}
	if o.Relation == nil {
		o.Relation = bound.Hierarchy{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Stats counts the work done for one body.
type Stats struct {
	Slots         int
	Dags          int
	DagNodes      int
	LoopPasses    int
	LoopWidenings int
	// Truncated counts subtrees skipped by the walk depth guard.
	Truncated int
}

// Result is the outcome of analyzing one method.
type Result struct {
	Method      *bound.Method
	Diagnostics []diag.Diagnostic
	Stats       Stats
	Slots       *slots.Allocator

	states map[bound.Node]*nullstate.StateMap
}

// StateOf returns the state of slot just before at executes. It needs
// Options.RecordStates; ok is false when nothing was recorded for at.
func (r *Result) StateOf(slot slots.SlotID, at bound.Node) (nullstate.State, bool) {
	m, ok := r.states[at]
	if !ok || m.Unreachable {
		return nullstate.MaybeNull, false
	}
	return m.Get(slot), true
}

// StateOfExpr is StateOf for the slot of a trackable expression.
func (r *Result) StateOfExpr(e bound.Expr, at bound.Node) (nullstate.State, bool) {
	slot, ok := r.Slots.SlotOf(e)
	if !ok {
		return nullstate.MaybeNull, false
	}
	return r.StateOf(slot, at)
}

// Reachable reports whether at was reached on any path. It needs
// Options.RecordStates.
func (r *Result) Reachable(at bound.Node) bool {
	m, ok := r.states[at]
	return ok && !m.Unreachable
}

// InvariantError is an internal inconsistency found while walking a body.
type InvariantError struct {
	Method string
	Span   diag.Span
	Msg    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violated in %s: %s", e.Span, e.Method, e.Msg)
}

// Analyze walks one method body and returns its diagnostics. The only error
// is an *InvariantError in strict mode.
func Analyze(m *bound.Method, opts Options) (res *Result, err error) {
	w := newWalker(m, opts.withDefaults())
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			res, err = nil, ie
		}
	}()

	w.run()
	w.stats.Slots = w.alloc.Len()
	return &Result{
		Method:      m,
		Diagnostics: w.rep.Diagnostics(),
		Stats:       w.stats,
		Slots:       w.alloc,
		states:      w.recorded,
	}, nil
}
