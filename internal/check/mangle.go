package check

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/graph"
)

// Predicates shared between the checker and a schema program. The checker
// supplies triple/3; the schema derives violation/4 and optionally
// warning/4 with arguments (Focus, Path, Component, Message).
const (
	triplePredicate    = "triple"
	violationPredicate = "violation"
	warningPredicate   = "warning"
)

const triplePrelude = "Decl triple(S, P, O).\n"

var (
	violationSym = ast.PredicateSym{Symbol: violationPredicate, Arity: 4}
	warningSym   = ast.PredicateSym{Symbol: warningPredicate, Arity: 4}
)

// MangleChecker evaluates a Datalog schema over the graph's triples.
//
// Every triple becomes a fact triple(S, P, O) of strings. IRIs are written
// in prefixed form (fhkb:Ann, rdf:type) and literals as their lexical
// value, so a schema reads like:
//
//	person(X) :- triple(X, "rdf:type", "fhkb:Person").
//	labelled(X) :- triple(X, "rdfs:label", _).
//	violation(X, "rdfs:label", "MinCountConstraintComponent", "missing label") :-
//	    person(X), !labelled(X).
type MangleChecker struct {
	program *analysis.ProgramInfo
	logger  *zap.Logger
}

// NewMangleChecker parses and analyzes the schema program once.
func NewMangleChecker(schema string, logger *zap.Logger) (*MangleChecker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	unit, err := parse.Unit(strings.NewReader(triplePrelude + schema))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	program, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze schema: %w", err)
	}
	if _, ok := program.Decls[violationSym]; !ok {
		return nil, fmt.Errorf("schema does not define %s/4", violationPredicate)
	}
	return &MangleChecker{program: program, logger: logger}, nil
}

type evalOutcome struct {
	violations []Violation
	err        error
}

// Check evaluates the schema. Evaluation itself is not interruptible, so a
// cancelled context abandons it and returns the context error.
func (c *MangleChecker) Check(ctx context.Context, g *graph.Graph, _ string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	done := make(chan evalOutcome, 1)
	go func() {
		v, err := c.evaluate(g)
		done <- evalOutcome{violations: v, err: err}
	}()

	var out evalOutcome
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case out = <-done:
	}
	if out.err != nil {
		return Result{}, out.err
	}

	conforms := len(out.violations) == 0
	c.logger.Debug("mangle check finished",
		zap.Int("triples", g.Len()),
		zap.Int("results", len(out.violations)),
		zap.Duration("elapsed", time.Since(start)))
	return Result{
		Conforms:   conforms,
		Report:     FormatReport(conforms, out.violations),
		Violations: out.violations,
	}, nil
}

func (c *MangleChecker) evaluate(g *graph.Graph) ([]Violation, error) {
	store := factstore.NewSimpleInMemoryStore()
	for _, t := range g.Triples() {
		store.Add(ast.NewAtom(triplePredicate,
			ast.String(factTerm(t.S)), ast.String(factTerm(t.P)), ast.String(factTerm(t.O))))
	}
	if _, err := engine.EvalProgramWithStats(c.program, store); err != nil {
		return nil, fmt.Errorf("evaluate schema: %w", err)
	}

	var out []Violation
	collect := func(sym ast.PredicateSym, severity string) error {
		return store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
			out = append(out, Violation{
				Focus:     constantText(a.Args[0]),
				Path:      constantText(a.Args[1]),
				Component: constantText(a.Args[2]),
				Message:   constantText(a.Args[3]),
				Severity:  severity,
			})
			return nil
		})
	}
	if err := collect(violationSym, SeverityViolation); err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	if err := collect(warningSym, SeverityWarning); err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Focus != b.Focus {
			return a.Focus < b.Focus
		}
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return a.Message < b.Message
	})
	return out, nil
}

func factTerm(t graph.Term) string {
	if t.IsIRI() {
		return graph.Compact(t.Value)
	}
	return t.Value
}

func constantText(t ast.BaseTerm) string {
	if c, ok := t.(ast.Constant); ok {
		switch c.Type {
		case ast.StringType, ast.NameType:
			return c.Symbol
		case ast.NumberType:
			return fmt.Sprint(c.NumValue)
		}
	}
	return t.String()
}
