package infer

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semgraph/internal/exec"
	"github.com/roach88/semgraph/internal/metrics"
	"github.com/roach88/semgraph/internal/parser"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
	semtest "github.com/roach88/semgraph/internal/testutil"
)

var iri = semtest.IRI

func patterns(t *testing.T, text string) []query.TriplePattern {
	t.Helper()
	tps, err := parser.ParsePatterns(text, semtest.Prefixes())
	require.NoError(t, err)
	return tps
}

func pattern(t *testing.T, text string) query.TriplePattern {
	t.Helper()
	tps := patterns(t, text)
	require.Len(t, tps, 1)
	return tps[0]
}

func condition(t *testing.T, text string) Condition {
	t.Helper()
	e, err := parser.ParseExpr(text, semtest.Prefixes())
	require.NoError(t, err)
	return ExprCondition{Expr: e}
}

func minorRule(t *testing.T) Rule {
	return Rule{
		Name:       "minor",
		Antecedent: patterns(t, "?p :hasAge ?age"),
		Condition:  condition(t, "?age < 18"),
		Conclusion: pattern(t, "?p a :Minor"),
	}
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithLogger(semtest.DiscardLogger()),
		WithBlankNodes(semtest.NewSequenceBlankGenerator("g")),
	}, opts...)
	return New(opts...)
}

// ============================================================================
// Fixpoint
// ============================================================================

func TestInfer_MinorScenario(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.TypeOf("a", "Person"),
		semtest.Fact("a", "hasAge", rdf.NewInteger(17)),
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(minorRule(t)))

	added, err := e.Infer(st)
	require.NoError(t, err)

	want := rdf.NewQuad(iri("a"), rdf.RDFType, iri("Minor"))
	require.Len(t, added, 1)
	assert.True(t, added[0].SameFact(want))
	assert.Equal(t, rdf.Derived, added[0].Provenance)
	assert.True(t, st.Contains(want))

	again, err := e.Infer(st)
	require.NoError(t, err)
	assert.NotNil(t, again)
	assert.Empty(t, again)
	assert.True(t, st.Contains(want))
}

func TestInfer_ConditionFiltersBindings(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.Fact("a", "hasAge", rdf.NewInteger(17)),
		semtest.Fact("b", "hasAge", rdf.NewInteger(30)),
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(minorRule(t)))

	added, err := e.Infer(st)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, iri("a"), added[0].Subject)
	assert.False(t, st.Contains(rdf.NewQuad(iri("b"), rdf.RDFType, iri("Minor"))))
}

func TestInfer_ConditionFunc(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.TypeOf("a", "Person"),
		semtest.TypeOf("b", "Person"),
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(Rule{
		Name:       "only-a",
		Antecedent: patterns(t, "?x a :Person"),
		Condition: ConditionFunc(func(b query.Binding) bool {
			return b["x"] == iri("a")
		}),
		Conclusion: pattern(t, "?x a :Chosen"),
	}))

	added, err := e.Infer(st)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, iri("a"), added[0].Subject)
}

func TestInfer_TransitiveClosure(t *testing.T) {
	st := semtest.NewStore(t,
		rdf.NewQuad(iri("A"), rdf.RDFSSubClassOf, iri("B")),
		rdf.NewQuad(iri("B"), rdf.RDFSSubClassOf, iri("C")),
		rdf.NewQuad(iri("C"), rdf.RDFSSubClassOf, iri("D")),
		semtest.TypeOf("x", "A"),
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(Rule{
		Name:       "subclass-transitive",
		Antecedent: patterns(t, "?a rdfs:subClassOf ?b . ?b rdfs:subClassOf ?c"),
		Conclusion: pattern(t, "?a rdfs:subClassOf ?c"),
	}))
	require.NoError(t, e.AddRule(Rule{
		Name:       "type-inheritance",
		Antecedent: patterns(t, "?x a ?c . ?c rdfs:subClassOf ?d"),
		Conclusion: pattern(t, "?x a ?d"),
	}))

	before := st.Size()
	added, err := e.Infer(st)
	require.NoError(t, err)

	// A<C, B<D, A<D, x:B, x:C, x:D
	assert.Len(t, added, 6)
	assert.Equal(t, before+6, st.Size())
	for _, class := range []string{"A", "B", "C", "D"} {
		assert.True(t, st.Contains(semtest.TypeOf("x", class)), class)
	}
	assert.Equal(t, 6, e.LastAdded())
	assert.Equal(t, Stats{StoreSize: before + 6, Rules: 2, LastAdded: 6, LastPasses: 3}, e.Stats(st))
}

func TestInfer_NoRules(t *testing.T) {
	st := semtest.NewStore(t, semtest.TypeOf("a", "Person"))
	added, err := newEngine(t).Infer(st)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, 1, newEngine(t).Stats(st).StoreSize)
}

// ============================================================================
// Properties
// ============================================================================

func TestInfer_Idempotent(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.Fact("a", "knows", iri("b")),
		semtest.Fact("b", "knows", iri("c")),
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(Rule{
		Name:       "symmetric",
		Antecedent: patterns(t, "?x :knows ?y"),
		Conclusion: pattern(t, "?y :knows ?x"),
	}))

	first, err := e.Infer(st)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := e.Infer(st)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 0, e.LastAdded())
}

func TestInfer_MonotonicAndSound(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.Fact("a", "hasAge", rdf.NewInteger(10)),
		semtest.Fact("b", "hasAge", rdf.NewInteger(12)),
		semtest.Fact("c", "hasAge", rdf.NewInteger(40)),
	)
	e := newEngine(t)
	rule := minorRule(t)
	require.NoError(t, e.AddRule(rule))

	before := st.Size()
	added, err := e.Infer(st)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.Size(), before)

	// Every derived quad is the conclusion of an antecedent binding whose
	// condition holds.
	bindings := exec.Join(rule.Antecedent, st, []query.Binding{{}})
	for _, q := range added {
		found := false
		for _, b := range bindings {
			if !rule.Condition.Holds(b) {
				continue
			}
			ground, ok := rule.Conclusion.Substitute(b).Ground()
			if ok && ground.SameFact(q) {
				found = true
				break
			}
		}
		assert.True(t, found, "unsupported derivation %s", q)
	}
}

func TestInfer_AssertedQuadNotReported(t *testing.T) {
	minor := rdf.NewQuad(iri("a"), rdf.RDFType, iri("Minor"))
	st := semtest.NewStore(t,
		semtest.Fact("a", "hasAge", rdf.NewInteger(17)),
		minor,
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(minorRule(t)))

	added, err := e.Infer(st)
	require.NoError(t, err)
	assert.Empty(t, added)

	prov, ok := st.Provenance(minor)
	require.True(t, ok)
	assert.Equal(t, rdf.Asserted, prov)
}

// ============================================================================
// Blank nodes and divergence
// ============================================================================

func recordRule(t *testing.T) Rule {
	return Rule{
		Name:       "has-record",
		Antecedent: patterns(t, "?x a :Person"),
		Conclusion: pattern(t, "?x :record _:r"),
	}
}

func TestInfer_BlankNodeMintedPerFiring(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.TypeOf("a", "Person"),
		semtest.TypeOf("b", "Person"),
	)
	e := newEngine(t, WithMaxPasses(1))
	require.NoError(t, e.AddRule(recordRule(t)))

	added, err := e.Infer(st)
	assert.True(t, IsDivergedError(err))
	require.Len(t, added, 2)
	assert.Equal(t, iri("a"), added[0].Subject)
	assert.Equal(t, rdf.BlankNode("g1"), added[0].Object)
	assert.Equal(t, iri("b"), added[1].Subject)
	assert.Equal(t, rdf.BlankNode("g2"), added[1].Object)
}

func TestInfer_DivergesOnFreshBlankNode(t *testing.T) {
	st := semtest.NewStore(t, semtest.Fact("a", "hasAge", rdf.NewInteger(17)))
	e := newEngine(t, WithMaxPasses(5))
	require.NoError(t, e.AddRule(Rule{
		Name:       "tag",
		Antecedent: patterns(t, "?p :hasAge ?age"),
		Conclusion: pattern(t, "?p :tag _:n"),
	}))

	added, err := e.Infer(st)
	require.Error(t, err)
	var de *InferenceDivergedError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 5, de.Iterations)

	// One fresh node per pass for the single binding.
	require.Len(t, added, 5)
	for i, q := range added {
		assert.Equal(t, iri("a"), q.Subject)
		assert.Equal(t, iri("tag"), q.Predicate)
		assert.Equal(t, rdf.BlankNode(fmt.Sprintf("g%d", i+1)), q.Object)
	}
	assert.Equal(t, 6, st.Size())
}

func TestInfer_SameEngineAcrossStores(t *testing.T) {
	facts := []rdf.Quad{
		semtest.TypeOf("a", "Person"),
		semtest.Fact("a", "hasAge", rdf.NewInteger(17)),
	}
	e := newEngine(t)
	require.NoError(t, e.AddRule(minorRule(t)))

	st1 := semtest.NewStore(t, facts...)
	first, err := e.Infer(st1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	st2 := semtest.NewStore(t, facts...)
	second, err := e.Infer(st2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].SameFact(first[0]))
	assert.Equal(t, 3, st2.Size())
}

func TestInfer_BlankRuleFiresOnEveryStore(t *testing.T) {
	e := newEngine(t, WithMaxPasses(1))
	require.NoError(t, e.AddRule(recordRule(t)))

	for _, name := range []string{"first", "second"} {
		t.Run(name, func(t *testing.T) {
			st := semtest.NewStore(t, semtest.TypeOf("a", "Person"))
			added, err := e.Infer(st)
			assert.True(t, IsDivergedError(err))
			require.Len(t, added, 1)
			assert.Equal(t, iri("a"), added[0].Subject)
			assert.Equal(t, 2, st.Size())
		})
	}
}

func TestInfer_RederivesRemovedConclusion(t *testing.T) {
	st := semtest.NewStore(t,
		semtest.TypeOf("a", "Person"),
		semtest.Fact("a", "hasAge", rdf.NewInteger(17)),
	)
	e := newEngine(t)
	require.NoError(t, e.AddRule(minorRule(t)))

	added, err := e.Infer(st)
	require.NoError(t, err)
	require.Len(t, added, 1)

	require.True(t, st.Remove(added[0]))
	again, err := e.Infer(st)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestInfer_DivergesOnFreshBlankChain(t *testing.T) {
	st := semtest.NewStore(t, semtest.Fact("a", "next", iri("b")))
	e := newEngine(t, WithMaxPasses(4))
	require.NoError(t, e.AddRule(Rule{
		Name:       "successor",
		Antecedent: patterns(t, "?x :next ?y"),
		Conclusion: pattern(t, "?y :next _:n"),
	}))

	before := st.Size()
	added, err := e.Infer(st)
	require.Error(t, err)
	assert.True(t, IsDivergedError(err))

	var de *InferenceDivergedError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.Iterations)
	assert.Equal(t, added[len(added)-1], de.SampleQuad)

	// Every edge fires each pass, so passes add 1, 2, 4 and 8 quads.
	assert.Len(t, added, 15)
	assert.Equal(t, before+len(added), st.Size())
	assert.Equal(t, 4, e.Stats(st).LastPasses)
}

func TestInfer_DefaultCap(t *testing.T) {
	e := New()
	assert.Equal(t, DefaultMaxPasses, e.maxPasses)
	assert.Equal(t, DefaultMaxPasses, New(WithMaxPasses(0)).maxPasses)
}

func TestInfer_InvalidInstantiationSkipped(t *testing.T) {
	st := semtest.NewStore(t, semtest.Fact("a", "name", rdf.NewString("Ann")))
	e := newEngine(t)
	require.NoError(t, e.AddRule(Rule{
		Name:       "inverse-name",
		Antecedent: patterns(t, "?x :name ?n"),
		Conclusion: pattern(t, "?n :nameOf ?x"),
	}))

	added, err := e.Infer(st)
	require.NoError(t, err)
	assert.Empty(t, added, "literal subject is never added")
}

func TestInfer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	st := semtest.NewStore(t, semtest.Fact("a", "hasAge", rdf.NewInteger(17)))
	e := newEngine(t, WithMetrics(m))
	require.NoError(t, e.AddRule(minorRule(t)))

	_, err := e.Infer(st)
	require.NoError(t, err)

	expected := `
# HELP semgraph_quads_derived_total Quads added by inference
# TYPE semgraph_quads_derived_total counter
semgraph_quads_derived_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "semgraph_quads_derived_total"))
}

// ============================================================================
// Registration
// ============================================================================

func TestAddRule_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		code     RuleErrorCode
		variable string
	}{
		{
			name: "empty name",
			rule: Rule{Antecedent: patterns(t, "?x ?p ?o"), Conclusion: pattern(t, "?x ?p ?o")},
			code: ErrCodeEmptyName,
		},
		{
			name: "empty antecedent",
			rule: Rule{Name: "r", Conclusion: pattern(t, ":a :b :c")},
			code: ErrCodeEmptyAntecedent,
		},
		{
			name:     "unbound conclusion variable",
			rule:     Rule{Name: "r", Antecedent: patterns(t, "?x :p ?y"), Conclusion: pattern(t, "?x :q ?z")},
			code:     ErrCodeUnboundConclusionVariable,
			variable: "z",
		},
		{
			name: "literal subject",
			rule: Rule{
				Name:       "r",
				Antecedent: patterns(t, "?x :p ?y"),
				Conclusion: query.Pattern(query.T(rdf.NewString("lit")), query.T(iri("q")), query.V("x")),
			},
			code: ErrCodeInvalidConclusion,
		},
		{
			name: "literal predicate",
			rule: Rule{
				Name:       "r",
				Antecedent: patterns(t, "?x :p ?y"),
				Conclusion: query.Pattern(query.V("x"), query.T(rdf.NewString("p")), query.V("y")),
			},
			code: ErrCodeInvalidConclusion,
		},
		{
			name: "unresolved prefix",
			rule: Rule{Name: "r", Antecedent: patterns(t, "?x nope:p ?y"), Conclusion: pattern(t, "?x :q ?y")},
			code: ErrCodeUnresolvedPrefix,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			err := e.AddRule(tt.rule)
			require.Error(t, err)
			assert.True(t, IsRuleDefinitionError(err))

			var re *RuleDefinitionError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.code, re.Code)
			assert.Equal(t, tt.variable, re.Variable)
			assert.Equal(t, 0, e.RuleCount(), "rejected rule is not registered")
		})
	}
}

func TestAddRule_DuplicateName(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.AddRule(minorRule(t)))

	err := e.AddRule(minorRule(t))
	var re *RuleDefinitionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeDuplicateRule, re.Code)
	assert.Equal(t, 1, e.RuleCount())
}

func TestAddRule_RegistrationOrder(t *testing.T) {
	e := newEngine(t)
	for _, name := range []string{"c", "a", "b"} {
		r := minorRule(t)
		r.Name = name
		require.NoError(t, e.AddRule(r))
	}
	rules := e.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, "c", rules[0].Name)
	assert.Equal(t, "a", rules[1].Name)
	assert.Equal(t, "b", rules[2].Name)
}

func TestRule_String(t *testing.T) {
	s := minorRule(t).String()
	assert.Contains(t, s, "minor: ")
	assert.Contains(t, s, " if (?age < 18)")
	assert.Contains(t, s, " => ")
}
