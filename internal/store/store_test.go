package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

const ex = "http://example.org/"

func iri(local string) rdf.IRI { return rdf.IRI(ex + local) }

func quad(s, p string, o rdf.Term) rdf.Quad {
	return rdf.NewQuad(iri(s), iri(p), o)
}

// newTestStore builds a store with a small person graph.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := New()
	for _, q := range []rdf.Quad{
		rdf.NewQuad(iri("ann"), rdf.RDFType, iri("Person")),
		rdf.NewQuad(iri("bob"), rdf.RDFType, iri("Person")),
		rdf.NewQuad(iri("cat"), rdf.RDFType, iri("Person")),
		quad("ann", "hasAge", rdf.NewInteger(17)),
		quad("bob", "hasAge", rdf.NewInteger(42)),
		quad("ann", "knows", iri("bob")),
		quad("bob", "knows", iri("bob")),
	} {
		added, err := st.Add(q)
		require.NoError(t, err)
		require.True(t, added)
	}
	return st
}

// ============================================================================
// Add / Remove / Contains
// ============================================================================

func TestAddIsSetSemantics(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))

	added, err := st.Add(q)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = st.Add(q)
	require.NoError(t, err)
	assert.False(t, added, "re-adding is a no-op")
	assert.Equal(t, 1, st.Size())
}

func TestAddRejectsInvalidQuad(t *testing.T) {
	st := New()
	added, err := st.Add(rdf.NewQuad(rdf.NewString("lit"), iri("p"), iri("o")))
	require.Error(t, err)
	assert.False(t, added)
	assert.Equal(t, 0, st.Size())
	assert.Equal(t, 0, st.Terms(), "nothing interned for an invalid quad")
}

func TestAddPromotesDerivedToAsserted(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))

	added, err := st.Add(q.WithProvenance(rdf.Derived))
	require.NoError(t, err)
	require.True(t, added)
	assert.Equal(t, 1, st.Count(rdf.Derived))

	added, err = st.Add(q)
	require.NoError(t, err)
	assert.False(t, added)

	prov, ok := st.Provenance(q)
	require.True(t, ok)
	assert.Equal(t, rdf.Asserted, prov)
	assert.Equal(t, 0, st.Count(rdf.Derived))
	assert.Equal(t, 1, st.Count(rdf.Asserted))
}

func TestAddDerivedOverAssertedKeepsAsserted(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))
	_, err := st.Add(q)
	require.NoError(t, err)

	added, err := st.Add(q.WithProvenance(rdf.Derived))
	require.NoError(t, err)
	assert.False(t, added)

	prov, _ := st.Provenance(q)
	assert.Equal(t, rdf.Asserted, prov)
}

func TestQuadsInDifferentGraphsAreDistinct(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))

	_, err := st.Add(q)
	require.NoError(t, err)
	added, err := st.Add(q.InGraph(iri("g")))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 2, st.Size())
	assert.Equal(t, []rdf.IRI{"", iri("g")}, st.Graphs())
}

func TestRemove(t *testing.T) {
	st := newTestStore(t)
	q := quad("ann", "hasAge", rdf.NewInteger(17))

	assert.True(t, st.Contains(q))
	assert.True(t, st.Remove(q))
	assert.False(t, st.Contains(q))
	assert.False(t, st.Remove(q), "second remove reports absence")
	assert.Equal(t, 6, st.Size())

	got := st.Match(query.Pattern(query.V("s"), query.T(iri("hasAge")), query.V("o")))
	require.Len(t, got, 1)
	assert.Equal(t, iri("bob"), got[0].Subject)
}

func TestRemoveIgnoresProvenance(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))
	_, err := st.Add(q.WithProvenance(rdf.Derived))
	require.NoError(t, err)

	assert.True(t, st.Remove(q))
	assert.Equal(t, 0, st.Count(rdf.Derived))
}

func TestRemoveThenReAdd(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))
	_, _ = st.Add(q)
	st.Remove(q)

	added, err := st.Add(q)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, st.Match(query.Pattern(query.T(iri("a")), query.V("p"), query.V("o"))), 1)
}

func TestLiteralCanonicalization(t *testing.T) {
	st := New()
	_, err := st.Add(quad("a", "name", rdf.Literal{Lexical: "Ann"}))
	require.NoError(t, err)

	assert.True(t, st.Contains(quad("a", "name", rdf.NewString("Ann"))))
	got := st.Quads()
	require.Len(t, got, 1)
	assert.Equal(t, rdf.Term(rdf.NewString("Ann")), got[0].Object)
}

// ============================================================================
// Match
// ============================================================================

func TestMatchAccessPaths(t *testing.T) {
	st := newTestStore(t)

	tests := []struct {
		name    string
		pattern query.TriplePattern
		want    int
	}{
		{"nothing bound", query.Pattern(query.V("s"), query.V("p"), query.V("o")), 7},
		{"subject bound", query.Pattern(query.T(iri("ann")), query.V("p"), query.V("o")), 3},
		{"predicate bound", query.Pattern(query.V("s"), query.T(rdf.RDFType), query.V("o")), 3},
		{"object bound", query.Pattern(query.V("s"), query.V("p"), query.T(iri("bob"))), 2},
		{"subject and object bound", query.Pattern(query.T(iri("ann")), query.V("p"), query.T(iri("bob"))), 1},
		{"predicate and object bound", query.Pattern(query.V("s"), query.T(rdf.RDFType), query.T(iri("Person"))), 3},
		{"fully bound present", query.Pattern(query.T(iri("ann")), query.T(iri("hasAge")), query.T(rdf.NewInteger(17))), 1},
		{"fully bound absent", query.Pattern(query.T(iri("ann")), query.T(iri("hasAge")), query.T(rdf.NewInteger(18))), 0},
		{"unknown term", query.Pattern(query.T(iri("zed")), query.V("p"), query.V("o")), 0},
		{"unresolved name", query.Pattern(query.PrefixedName{Prefix: "foo", Local: "x"}, query.V("p"), query.V("o")), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := st.Match(tt.pattern)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestMatchRepeatedVariable(t *testing.T) {
	st := newTestStore(t)
	got := st.Match(query.Pattern(query.V("x"), query.T(iri("knows")), query.V("x")))
	require.Len(t, got, 1)
	assert.Equal(t, iri("bob"), got[0].Subject)
}

func TestMatchInsertionOrder(t *testing.T) {
	st := newTestStore(t)
	got := st.Match(query.Pattern(query.V("s"), query.T(rdf.RDFType), query.T(iri("Person"))))
	require.Len(t, got, 3)
	assert.Equal(t, iri("ann"), got[0].Subject)
	assert.Equal(t, iri("bob"), got[1].Subject)
	assert.Equal(t, iri("cat"), got[2].Subject)
}

func TestMatchGraphs(t *testing.T) {
	st := New()
	q := quad("a", "p", iri("b"))
	_, _ = st.Add(q)
	_, _ = st.Add(q.InGraph(iri("g1")))
	_, _ = st.Add(quad("c", "p", iri("d")).InGraph(iri("g2")))

	base := query.Pattern(query.V("s"), query.T(iri("p")), query.V("o"))

	assert.Len(t, st.Match(base), 3, "nil graph matches any graph")

	inDefault := base
	inDefault.Graph = query.T(rdf.IRI(""))
	assert.Len(t, st.Match(inDefault), 1)

	inG1 := base
	inG1.Graph = query.T(iri("g1"))
	got := st.Match(inG1)
	require.Len(t, got, 1)
	assert.Equal(t, iri("g1"), got[0].Graph)

	anyGraph := base
	anyGraph.Graph = query.V("g")
	assert.Len(t, st.Match(anyGraph), 3)

	missing := base
	missing.Graph = query.T(iri("nope"))
	assert.Empty(t, st.Match(missing))
}

func TestMatchCarriesProvenance(t *testing.T) {
	st := New()
	_, _ = st.Add(quad("a", "p", iri("b")).WithProvenance(rdf.Derived))
	got := st.Match(query.Pattern(query.V("s"), query.V("p"), query.V("o")))
	require.Len(t, got, 1)
	assert.Equal(t, rdf.Derived, got[0].Provenance)
}

func TestMatchSeesMutations(t *testing.T) {
	st := New()
	p := query.Pattern(query.V("s"), query.T(iri("p")), query.V("o"))
	assert.Empty(t, st.Match(p))

	_, _ = st.Add(quad("a", "p", iri("b")))
	assert.Len(t, st.Match(p), 1, "no cached snapshot")
}

func TestExplainPicksFewestCandidates(t *testing.T) {
	st := newTestStore(t)

	path, n := st.Explain(query.Pattern(query.V("s"), query.V("p"), query.V("o")))
	assert.Equal(t, PathFullScan, path)
	assert.Equal(t, uint64(7), n)

	path, n = st.Explain(query.Pattern(query.T(iri("ann")), query.V("p"), query.V("o")))
	assert.Equal(t, PathSPO, path)
	assert.Equal(t, uint64(3), n)

	path, _ = st.Explain(query.Pattern(query.V("s"), query.T(iri("hasAge")), query.V("o")))
	assert.Equal(t, PathPOS, path)

	path, _ = st.Explain(query.Pattern(query.V("s"), query.V("p"), query.T(rdf.NewInteger(42))))
	assert.Equal(t, PathOSP, path)

	// ann has 3 quads, bob as object has 2, (bob, ann) under OSP has 1.
	path, n = st.Explain(query.Pattern(query.T(iri("ann")), query.V("p"), query.T(iri("bob"))))
	assert.Equal(t, PathOSP, path)
	assert.Equal(t, uint64(1), n)

	path, _ = st.Explain(query.Pattern(query.T(iri("zed")), query.V("p"), query.V("o")))
	assert.Equal(t, PathEmpty, path)
}

func TestIndexCountsAfterRemove(t *testing.T) {
	st := newTestStore(t)
	st.Remove(rdf.NewQuad(iri("ann"), rdf.RDFType, iri("Person")))

	_, n := st.Explain(query.Pattern(query.V("s"), query.T(rdf.RDFType), query.V("o")))
	assert.Equal(t, uint64(2), n)

	for _, q := range st.Match(query.Pattern(query.T(iri("bob")), query.V("p"), query.V("o"))) {
		st.Remove(q)
	}
	path, _ := st.Explain(query.Pattern(query.T(iri("bob")), query.V("p"), query.V("o")))
	assert.Equal(t, PathEmpty, path, "empty branches are pruned")
}

// ============================================================================
// Iteration
// ============================================================================

func TestAllStopsEarly(t *testing.T) {
	st := newTestStore(t)
	n := 0
	for range st.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
	assert.Len(t, st.Quads(), 7)
}

func TestEmptyStore(t *testing.T) {
	st := New()
	assert.Equal(t, 0, st.Size())
	assert.Empty(t, st.Quads())
	assert.Empty(t, st.Graphs())
	assert.NotNil(t, st.Match(query.Pattern(query.V("s"), query.V("p"), query.V("o"))))
}
