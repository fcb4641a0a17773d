package infer

import (
	"io"
	"log/slog"

	"github.com/roach88/semgraph/internal/exec"
	"github.com/roach88/semgraph/internal/metrics"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/store"
)

// DefaultMaxPasses is the default pass cap for one Infer call.
const DefaultMaxPasses = 1000

// Engine applies registered rules to a store until a fixpoint.
//
// INVARIANTS:
//   - rules order never changes after registration; it is evaluation order
//   - rule names are unique
//   - every conclusion variable is bound by the antecedent
type Engine struct {
	rules     []Rule
	names     map[string]bool
	maxPasses int
	blanks    BlankNodeGenerator
	logger    *slog.Logger
	metrics   *metrics.Metrics

	lastAdded  int
	lastPasses int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPasses sets the pass cap. Values below 1 are ignored.
//
// Default: 1000 passes (DefaultMaxPasses)
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// WithBlankNodes sets the generator for conclusion blank nodes.
//
// Default: UUIDv7Generator
func WithBlankNodes(gen BlankNodeGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.blanks = gen
		}
	}
}

// WithLogger sets the logger. Passes are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records runs, passes and derived quads.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine with no rules.
func New(opts ...Option) *Engine {
	e := &Engine{
		names:     make(map[string]bool),
		maxPasses: DefaultMaxPasses,
		blanks:    UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule validates r and appends it to the rule list.
//
// Returns *RuleDefinitionError if the rule is malformed; the rule is then
// not registered. The antecedent slice is copied.
func (e *Engine) AddRule(r Rule) error {
	if err := checkRule(r); err != nil {
		return err
	}
	if e.names[r.Name] {
		return &RuleDefinitionError{
			Rule:    r.Name,
			Code:    ErrCodeDuplicateRule,
			Message: "a rule with this name is already registered",
		}
	}

	antecedent := make([]query.TriplePattern, len(r.Antecedent))
	copy(antecedent, r.Antecedent)
	r.Antecedent = antecedent

	e.rules = append(e.rules, r)
	e.names[r.Name] = true
	e.metrics.SetRules(len(e.rules))
	e.logger.Debug("rule registered", "rule", r.Name, "position", len(e.rules))
	return nil
}

// RuleCount returns the number of registered rules.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Rules returns a copy of the registered rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// LastAdded returns the number of quads the last Infer call added.
func (e *Engine) LastAdded() int {
	return e.lastAdded
}

// Stats is a read-only summary for inspection.
type Stats struct {
	StoreSize  int
	Rules      int
	LastAdded  int
	LastPasses int
}

// Stats reports the store size and the results of the last Infer call.
func (e *Engine) Stats(st *store.Store) Stats {
	s := Stats{
		Rules:      len(e.rules),
		LastAdded:  e.lastAdded,
		LastPasses: e.lastPasses,
	}
	if st != nil {
		s.StoreSize = st.Size()
	}
	return s
}

// Infer runs every rule to a fixpoint and returns the quads this call added,
// in insertion order.
//
// Each pass applies the rules in registration order against the current
// store, so a rule sees what earlier rules added in the same pass. A pass
// that adds nothing ends the run. The engine keeps no record of earlier
// calls: the result depends only on the rules and the store. A rule whose
// conclusion holds a blank node mints a fresh node on every firing and so
// never reaches a fixpoint. If pass maxPasses still added quads, Infer
// returns the added quads together with an *InferenceDivergedError; the
// quads stay in the store.
func (e *Engine) Infer(st *store.Store) ([]rdf.Quad, error) {
	added := []rdf.Quad{}

	for pass := 1; pass <= e.maxPasses; pass++ {
		n := 0
		for _, r := range e.rules {
			for _, q := range e.fire(r, st) {
				added = append(added, q)
				n++
			}
		}

		e.logger.Debug("inference pass", "pass", pass, "added", n, "store_size", st.Size())

		if n == 0 {
			e.finish(metrics.OutcomeOK, pass, added, st)
			e.logger.Info("inference complete",
				"passes", pass,
				"added", len(added))
			return added, nil
		}
	}

	e.finish(metrics.OutcomeDiverged, e.maxPasses, added, st)
	err := &InferenceDivergedError{
		Iterations: e.maxPasses,
		SampleQuad: added[len(added)-1],
	}
	e.logger.Error("inference diverged",
		"passes", e.maxPasses,
		"added", len(added),
		"sample", err.SampleQuad.String())
	return added, err
}

func (e *Engine) finish(outcome string, passes int, added []rdf.Quad, st *store.Store) {
	e.lastAdded = len(added)
	e.lastPasses = passes
	e.metrics.ObserveInference(outcome, passes, len(added), st.Size())
}

// fire applies one rule to the store and returns the quads it inserted.
func (e *Engine) fire(r Rule, st *store.Store) []rdf.Quad {
	bindings := exec.Join(r.Antecedent, st, []query.Binding{{}})

	var out []rdf.Quad
	for _, b := range bindings {
		if !r.holds(b) {
			continue
		}
		q, ok := e.instantiate(r.Conclusion, b)
		if !ok {
			e.logger.Debug("conclusion not groundable", "rule", r.Name, "binding", b.String())
			continue
		}
		q = q.WithProvenance(rdf.Derived)

		inserted, err := st.Add(q)
		if err != nil {
			e.logger.Debug("conclusion rejected", "rule", r.Name, "binding", b.String(), "error", err)
			continue
		}
		if inserted {
			e.logger.Debug("quad derived", "rule", r.Name, "quad", q.String())
			out = append(out, q)
		}
	}
	return out
}

// instantiate substitutes b into the conclusion and replaces each template
// blank node with a fresh one. Blank nodes with the same template label map
// to the same fresh node within one firing.
func (e *Engine) instantiate(conclusion query.TriplePattern, b query.Binding) (rdf.Quad, bool) {
	tp := conclusion.Substitute(b)

	fresh := make(map[rdf.BlankNode]rdf.BlankNode)
	mint := func(n query.Node) query.Node {
		tn, ok := n.(query.TermNode)
		if !ok {
			return n
		}
		bn, ok := tn.Term.(rdf.BlankNode)
		if !ok {
			return n
		}
		if _, bound := fresh[bn]; !bound {
			fresh[bn] = rdf.BlankNode(e.blanks.Generate())
		}
		return query.TermNode{Term: fresh[bn]}
	}

	// Only template positions of the conclusion are minted; blank nodes
	// that arrive through the binding are existing store terms.
	if !query.IsVariable(conclusion.Subject) {
		tp.Subject = mint(tp.Subject)
	}
	if !query.IsVariable(conclusion.Object) {
		tp.Object = mint(tp.Object)
	}

	return tp.Ground()
}
