package query

import (
	"strings"
)

// Group is a block of patterns with its own filters, used for OPTIONAL.
type Group struct {
	Patterns []TriplePattern
	Filters  []Expr
}

// Variables returns the distinct variables of the group's patterns.
func (g Group) Variables() []string {
	return patternVariables(g.Patterns, nil, make(map[string]bool))
}

// Query is a SELECT query over a basic graph pattern.
//
// Evaluation:
//  1. Patterns are joined conjunctively
//  2. Each Optional group is left-joined in order
//  3. Every filter in Filters must evaluate to true
//  4. Results are projected onto Projection (all variables when Star)
type Query struct {
	Projection []string
	Star       bool
	Patterns   []TriplePattern
	Filters    []Expr
	Optional   []Group

	// Prefixes holds the prefix declarations in effect when the query was
	// parsed. Informational only; names are resolved at parse time.
	Prefixes map[string]string
}

// Variables returns the distinct variables of the required and optional
// patterns in first-appearance order.
func (q *Query) Variables() []string {
	seen := make(map[string]bool)
	vars := patternVariables(q.Patterns, nil, seen)
	for _, g := range q.Optional {
		vars = patternVariables(g.Patterns, vars, seen)
	}
	return vars
}

// Projected returns the variables that appear in results.
func (q *Query) Projected() []string {
	if q.Star {
		return q.Variables()
	}
	return q.Projection
}

// Unresolved returns every unresolved prefixed name in the query,
// in source order.
func (q *Query) Unresolved() []PrefixedName {
	var out []PrefixedName
	for _, tp := range q.Patterns {
		out = append(out, tp.Unresolved()...)
	}
	for _, f := range q.Filters {
		out = append(out, ExprUnresolved(f)...)
	}
	for _, g := range q.Optional {
		for _, tp := range g.Patterns {
			out = append(out, tp.Unresolved()...)
		}
		for _, f := range g.Filters {
			out = append(out, ExprUnresolved(f)...)
		}
	}
	return out
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT")
	if q.Star {
		b.WriteString(" *")
	}
	for _, v := range q.Projection {
		b.WriteString(" ?")
		b.WriteString(v)
	}
	b.WriteString(" WHERE {")
	writePatterns(&b, q.Patterns)
	for _, f := range q.Filters {
		b.WriteString(" FILTER")
		b.WriteString(f.String())
	}
	for _, g := range q.Optional {
		b.WriteString(" OPTIONAL {")
		writePatterns(&b, g.Patterns)
		for _, f := range g.Filters {
			b.WriteString(" FILTER")
			b.WriteString(f.String())
		}
		b.WriteString(" }")
	}
	b.WriteString(" }")
	return b.String()
}

func writePatterns(b *strings.Builder, patterns []TriplePattern) {
	for i, tp := range patterns {
		if i > 0 {
			b.WriteString(" .")
		}
		b.WriteByte(' ')
		b.WriteString(tp.String())
	}
}

func patternVariables(patterns []TriplePattern, vars []string, seen map[string]bool) []string {
	for _, tp := range patterns {
		for _, v := range tp.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}
