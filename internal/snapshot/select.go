package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// Select returns the persisted quads matching a single triple pattern,
// ordered by saved position.
//
// Bound positions compile to column equality; variables repeated across
// positions compile to column-to-column equality. A nil graph matches every
// graph. All values are parameterized.
func (d *DB) Select(ctx context.Context, p query.TriplePattern) ([]rdf.Quad, error) {
	sqlText, args, err := compilePattern(p)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	out := []rdf.Quad{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		q, err := decodeQuad(r)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select: iterate quads: %w", err)
	}
	return out, nil
}

// Source matches patterns against a DB through Select. It satisfies the
// executor's single-pattern source interface, so a query can run without
// loading the snapshot into a store.
//
// Match has no error return: the first Select error is kept, every later
// Match returns no quads, and Err reports it.
type Source struct {
	ctx context.Context
	db  *DB
	err error
}

// Source returns a Source bound to ctx.
func (d *DB) Source(ctx context.Context) *Source {
	return &Source{ctx: ctx, db: d}
}

// Match returns the persisted quads matching p.
func (s *Source) Match(p query.TriplePattern) []rdf.Quad {
	if s.err != nil {
		return []rdf.Quad{}
	}
	quads, err := s.db.Select(s.ctx, p)
	if err != nil {
		s.err = err
		return []rdf.Quad{}
	}
	return quads
}

// Err returns the first Select error, or nil.
func (s *Source) Err() error {
	return s.err
}

// column is the SQL form of one pattern position: a kind expression and a
// value expression. Literal objects also carry datatype and language.
type column struct {
	kind, value, datatype, lang string
}

var (
	subjectColumn   = column{kind: "s_kind", value: "s_value"}
	predicateColumn = column{kind: "'" + kindIRI + "'", value: "p_value"}
	objectColumn    = column{kind: "o_kind", value: "o_value", datatype: "o_datatype", lang: "o_lang"}
	graphColumn     = column{kind: "'" + kindIRI + "'", value: "graph"}
)

// compilePattern converts a pattern to parameterized SQL. The query always
// ends with ORDER BY seq, id so rows come back in saved order.
func compilePattern(p query.TriplePattern) (string, []any, error) {
	var where []string
	var args []any
	first := make(map[string]column)

	positions := []struct {
		name string
		node query.Node
		col  column
	}{
		{"subject", p.Subject, subjectColumn},
		{"predicate", p.Predicate, predicateColumn},
		{"object", p.Object, objectColumn},
		{"graph", p.Graph, graphColumn},
	}

	for _, pos := range positions {
		switch n := pos.node.(type) {
		case nil:
			if pos.name != "graph" {
				return "", nil, fmt.Errorf("select: %s is missing", pos.name)
			}
		case query.Variable:
			prev, seen := first[string(n)]
			if !seen {
				first[string(n)] = pos.col
				continue
			}
			where = append(where, pos.col.kind+" = "+prev.kind, pos.col.value+" = "+prev.value)
			if pos.col.datatype != "" && prev.datatype != "" {
				where = append(where, pos.col.datatype+" = "+prev.datatype, pos.col.lang+" = "+prev.lang)
			}
		case query.TermNode:
			conds, vals, err := bindTerm(pos.name, pos.col, n.Term)
			if err != nil {
				return "", nil, err
			}
			where = append(where, conds...)
			args = append(args, vals...)
		case query.PrefixedName:
			return "", nil, fmt.Errorf("select: %s: unresolved prefix in %s", pos.name, n)
		default:
			return "", nil, fmt.Errorf("select: %s: unsupported node %T", pos.name, pos.node)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM quads")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY seq ASC, id COLLATE BINARY ASC")
	return b.String(), args, nil
}

func bindTerm(position string, col column, t rdf.Term) ([]string, []any, error) {
	t = rdf.Canonical(t)
	switch v := t.(type) {
	case rdf.IRI:
		if col.kind[0] == '\'' {
			return []string{col.value + " = ?"}, []any{string(v)}, nil
		}
		return []string{col.kind + " = ?", col.value + " = ?"}, []any{kindIRI, string(v)}, nil
	case rdf.BlankNode:
		if col.kind[0] == '\'' {
			return nil, nil, fmt.Errorf("select: %s cannot be a blank node", position)
		}
		return []string{col.kind + " = ?", col.value + " = ?"}, []any{kindBlank, string(v)}, nil
	case rdf.Literal:
		if col.datatype == "" {
			return nil, nil, fmt.Errorf("select: %s cannot be a literal", position)
		}
		return []string{col.kind + " = ?", col.value + " = ?", col.datatype + " = ?", col.lang + " = ?"},
			[]any{kindLiteral, v.Lexical, string(v.Datatype), v.Lang}, nil
	default:
		return nil, nil, fmt.Errorf("select: %s: unsupported term %T", position, t)
	}
}
