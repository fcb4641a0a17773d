package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/store"
)

// EX is the namespace of test fixtures.
const EX = "http://example.org/"

// IRI returns EX+local.
func IRI(local string) rdf.IRI {
	return rdf.IRI(EX + local)
}

// Fact builds a default-graph quad with EX subject and predicate.
func Fact(s, p string, o rdf.Term) rdf.Quad {
	return rdf.NewQuad(IRI(s), IRI(p), o)
}

// TypeOf builds (EX+s, rdf:type, EX+class).
func TypeOf(s, class string) rdf.Quad {
	return rdf.NewQuad(IRI(s), rdf.RDFType, IRI(class))
}

// Prefixes returns the standard prefixes plus "ex" and the empty prefix,
// both bound to EX.
func Prefixes() map[string]string {
	p := rdf.StandardPrefixes()
	p["ex"] = EX
	p[""] = EX
	return p
}

// NewStore returns a store holding quads. Fails the test on invalid quads.
func NewStore(t testing.TB, quads ...rdf.Quad) *store.Store {
	t.Helper()
	st := store.New()
	for _, q := range quads {
		_, err := st.Add(q)
		require.NoError(t, err)
	}
	return st
}

// DiscardLogger returns a logger that writes nothing.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
