package query

import (
	"sort"
	"strings"

	"github.com/roach88/semgraph/internal/rdf"
)

// Binding maps variable names (without '?') to the terms they are bound to.
// A variable absent from the map is unbound.
type Binding map[string]rdf.Term

// Clone returns a shallow copy of b. The terms themselves are immutable.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Extend binds name to t in a copy of b.
// Returns false if name is already bound to a different term.
func (b Binding) Extend(name string, t rdf.Term) (Binding, bool) {
	if existing, ok := b[name]; ok {
		if existing != t {
			return nil, false
		}
		return b, true
	}
	out := b.Clone()
	out[name] = t
	return out, true
}

// Project keeps only the named variables. Unbound names stay absent.
func (b Binding) Project(vars []string) Binding {
	out := make(Binding, len(vars))
	for _, name := range vars {
		if t, ok := b[name]; ok {
			out[name] = t
		}
	}
	return out
}

// Names returns the bound variable names in sorted order.
func (b Binding) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key returns a stable canonical encoding of the binding, suitable for
// memoization and set membership. Equal bindings have equal keys.
func (b Binding) Key() string {
	var sb strings.Builder
	for _, name := range b.Names() {
		sb.WriteString(name)
		sb.WriteByte(0)
		sb.WriteString(rdf.Key(b[name]))
		sb.WriteByte(0)
	}
	return sb.String()
}

// String renders the binding as "?a=<x> ?b=1" in name order.
func (b Binding) String() string {
	parts := make([]string, 0, len(b))
	for _, name := range b.Names() {
		parts = append(parts, "?"+name+"="+b[name].String())
	}
	return strings.Join(parts, " ")
}
