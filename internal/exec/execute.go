package exec

import (
	"errors"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/semgraph/internal/metrics"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// Source supplies the quads matching a single triple pattern.
// *store.Store implements Source.
type Source interface {
	Match(p query.TriplePattern) []rdf.Quad
}

// Executor evaluates queries against a Source.
//
// The zero value is not usable; construct with NewExecutor. Executors hold
// no per-query state and may be shared.
type Executor struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for debug tracing of executions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records an outcome per execution. A nil *metrics.Metrics
// records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExecutor = NewExecutor()

// Execute evaluates q against src and returns every solution.
//
// Execution order:
//  1. Required patterns are joined, most-bound pattern first
//  2. Optional groups are left-joined in source order
//  3. Filters drop every binding that does not evaluate to true
//  4. Bindings are projected onto the selected variables
//
// Filters run after the optional groups, as in a SPARQL group pattern, so a
// filter may test variables that only an OPTIONAL binds.
//
// A query that matches nothing returns an empty, non-nil slice.
// Solutions are a bag: duplicates after projection are kept.
func Execute(q *query.Query, src Source) ([]query.Binding, error) {
	return defaultExecutor.Execute(q, src)
}

// Execute evaluates q against src. See the package-level Execute.
func (e *Executor) Execute(q *query.Query, src Source) ([]query.Binding, error) {
	results, err := e.execute(q, src)
	if err != nil {
		e.metrics.ObserveQuery(metrics.OutcomeError)
		e.logger.Debug("query rejected", "error", err)
		return nil, err
	}
	e.metrics.ObserveQuery(metrics.OutcomeOK)
	e.logger.Debug("query executed",
		"patterns", len(q.Patterns),
		"optional", len(q.Optional),
		"filters", len(q.Filters),
		"results", len(results))
	return results, nil
}

func (e *Executor) execute(q *query.Query, src Source) ([]query.Binding, error) {
	if err := check(q); err != nil {
		return nil, err
	}

	solutions := Join(q.Patterns, src, []query.Binding{{}})

	for _, g := range q.Optional {
		solutions = leftJoin(solutions, g, src)
	}

	solutions = applyFilters(solutions, q.Filters)

	vars := q.Projected()
	out := make([]query.Binding, 0, len(solutions))
	for _, b := range solutions {
		out = append(out, b.Project(vars))
	}
	return out, nil
}

// check rejects queries that cannot be executed as written. Prefixes are
// checked first, then the structure through query.Validate.
func check(q *query.Query) error {
	if q != nil {
		if unresolved := q.Unresolved(); len(unresolved) > 0 {
			pn := unresolved[0]
			return &QueryExecutionError{
				Code:    ErrCodeUnresolvedPrefix,
				Message: "undeclared prefix in " + pn.String(),
				Prefix:  pn.Prefix,
			}
		}
	}

	err := query.Validate(q)
	var ve *query.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return &QueryExecutionError{
		Code:     executionCode(ve.Code),
		Message:  ve.Message,
		Variable: ve.Variable,
	}
}

func executionCode(code string) ErrorCode {
	switch code {
	case query.CodeEmptyWhere:
		return ErrCodeEmptyQuery
	case query.CodeUnknownVariable:
		return ErrCodeUnknownVariable
	default:
		return ErrCodeMalformedQuery
	}
}

// Join evaluates patterns conjunctively, extending every seed binding.
//
// Patterns are reordered by descending bound-position count; ties keep
// their given order. Each pattern is substituted with the partial binding
// before matching, so later patterns see earlier bindings.
func Join(patterns []query.TriplePattern, src Source, seeds []query.Binding) []query.Binding {
	ordered := make([]query.TriplePattern, len(patterns))
	copy(ordered, patterns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].BoundCount() > ordered[j].BoundCount()
	})

	current := seeds
	for _, tp := range ordered {
		if len(current) == 0 {
			break
		}
		next := make([]query.Binding, 0, len(current))
		for _, b := range current {
			for _, quad := range src.Match(tp.Substitute(b)) {
				if ext, ok := unify(tp, quad, b); ok {
					next = append(next, ext)
				}
			}
		}
		current = next
	}
	return current
}

// unify binds the variables of tp to the matching positions of quad.
func unify(tp query.TriplePattern, quad rdf.Quad, b query.Binding) (query.Binding, bool) {
	terms := [3]rdf.Term{quad.Subject, quad.Predicate, quad.Object}
	out := b
	for i, n := range tp.Positions() {
		v, ok := n.(query.Variable)
		if !ok {
			continue
		}
		if out, ok = out.Extend(string(v), terms[i]); !ok {
			return nil, false
		}
	}
	if v, ok := tp.Graph.(query.Variable); ok {
		var bound bool
		if out, bound = out.Extend(string(v), quad.Graph); !bound {
			return nil, false
		}
	}
	return out, true
}

// leftJoin extends each binding with the group's solutions, keeping the
// binding unchanged when the group has none.
func leftJoin(solutions []query.Binding, g query.Group, src Source) []query.Binding {
	out := make([]query.Binding, 0, len(solutions))
	for _, b := range solutions {
		ext := applyFilters(Join(g.Patterns, src, []query.Binding{b}), g.Filters)
		if len(ext) == 0 {
			out = append(out, b)
			continue
		}
		out = append(out, ext...)
	}
	return out
}

func applyFilters(solutions []query.Binding, filters []query.Expr) []query.Binding {
	if len(filters) == 0 {
		return solutions
	}
	out := make([]query.Binding, 0, len(solutions))
	for _, b := range solutions {
		if passes(b, filters) {
			out = append(out, b)
		}
	}
	return out
}

func passes(b query.Binding, filters []query.Expr) bool {
	for _, f := range filters {
		ok, err := EvalBool(f, b)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
