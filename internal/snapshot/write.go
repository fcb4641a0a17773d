package snapshot

import (
	"context"
	"fmt"

	"github.com/roach88/semgraph/internal/store"
)

// Save replaces the persisted quad set with the contents of st.
// The replacement happens in one transaction: on error the previous
// snapshot is left intact. Quads keep the store's iteration order.
func (d *DB) Save(ctx context.Context, st *store.Store) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quads`); err != nil {
		return fmt.Errorf("save: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quads
		(id, seq, s_kind, s_value, p_value, o_kind, o_value, o_datatype, o_lang, graph, provenance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save: prepare: %w", err)
	}
	defer stmt.Close()

	var seq int64
	for q := range st.All() {
		r, err := encodeQuad(q, seq)
		if err != nil {
			return fmt.Errorf("save: %s: %w", q, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.id, r.seq, r.sKind, r.sValue, r.pValue,
			r.oKind, r.oValue, r.oDatatype, r.oLang, r.graph, r.provenance,
		); err != nil {
			return fmt.Errorf("save: insert %s: %w", q, err)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: commit: %w", err)
	}
	return nil
}

// SavePrefixes records prefix declarations, replacing existing entries of
// the same name.
func (d *DB) SavePrefixes(ctx context.Context, prefixes map[string]string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save prefixes: begin: %w", err)
	}
	defer tx.Rollback()

	for name, iri := range prefixes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prefixes (name, iri) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET iri = excluded.iri
		`, name, iri); err != nil {
			return fmt.Errorf("save prefixes: %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save prefixes: commit: %w", err)
	}
	return nil
}
