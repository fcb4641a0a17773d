package store

import (
	"github.com/roach88/semgraph/internal/rdf"
)

// dictionary interns terms to dense uint32 ids.
//
// Ids are never reused. Terms stay interned after the last quad referencing
// them is removed.
type dictionary struct {
	ids   map[string]uint32 // rdf.Key → id
	terms []rdf.Term        // id → term
}

func newDictionary() *dictionary {
	return &dictionary{
		ids: make(map[string]uint32),
	}
}

// intern returns the id of t, assigning a new one if needed.
func (d *dictionary) intern(t rdf.Term) uint32 {
	k := rdf.Key(t)
	if id, ok := d.ids[k]; ok {
		return id
	}
	id := uint32(len(d.terms))
	d.ids[k] = id
	d.terms = append(d.terms, t)
	return id
}

// lookup returns the id of t without interning it.
func (d *dictionary) lookup(t rdf.Term) (uint32, bool) {
	id, ok := d.ids[rdf.Key(t)]
	return id, ok
}

// term returns the term for id.
func (d *dictionary) term(id uint32) rdf.Term {
	return d.terms[id]
}

func (d *dictionary) len() int {
	return len(d.terms)
}
