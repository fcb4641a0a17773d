package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/semgraph/internal/store"
)

const selectColumns = `id, seq, s_kind, s_value, p_value, o_kind, o_value, o_datatype, o_lang, graph, provenance`

// Load adds every persisted quad to st, preserving provenance, and returns
// the number of quads newly added. Quads are added in saved order.
func (d *DB) Load(ctx context.Context, st *store.Store) (int, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM quads
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return 0, fmt.Errorf("load: query quads: %w", err)
	}
	defer rows.Close()

	added := 0
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return added, err
		}
		q, err := decodeQuad(r)
		if err != nil {
			return added, fmt.Errorf("load: %w", err)
		}
		ok, err := st.Add(q)
		if err != nil {
			return added, fmt.Errorf("load: %w", err)
		}
		if ok {
			added++
		}
	}
	if err := rows.Err(); err != nil {
		return added, fmt.Errorf("load: iterate quads: %w", err)
	}
	return added, nil
}

// Count returns the number of persisted quads.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quads: %w", err)
	}
	return n, nil
}

// Prefixes returns the recorded prefix declarations.
// Returns an empty map (not nil) if none are recorded.
func (d *DB) Prefixes(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, iri FROM prefixes ORDER BY name COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query prefixes: %w", err)
	}
	defer rows.Close()

	prefixes := make(map[string]string)
	for rows.Next() {
		var name, iri string
		if err := rows.Scan(&name, &iri); err != nil {
			return nil, fmt.Errorf("scan prefix: %w", err)
		}
		prefixes[name] = iri
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prefixes: %w", err)
	}
	return prefixes, nil
}

func scanRow(rows *sql.Rows) (row, error) {
	var r row
	err := rows.Scan(&r.id, &r.seq, &r.sKind, &r.sValue, &r.pValue,
		&r.oKind, &r.oValue, &r.oDatatype, &r.oLang, &r.graph, &r.provenance)
	if err != nil {
		return row{}, fmt.Errorf("scan quad: %w", err)
	}
	return r, nil
}
