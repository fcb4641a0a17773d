package store

import (
	"fmt"
	"iter"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/semgraph/internal/rdf"
)

// Position indices into a [3]uint32 triple key.
const (
	posS = 0
	posP = 1
	posO = 2
)

// record is the stored form of a quad.
type record struct {
	spo   [3]uint32
	graph uint32
	prov  rdf.Provenance
}

// Store is an in-memory quad store. The zero value is not usable; call New.
type Store struct {
	dict *dictionary

	records map[uint32]*record // quad id → record
	byKey   map[string]uint32  // rdf.Quad.Key → quad id
	live    *roaring.Bitmap    // ids of stored quads
	nextID  uint32

	spo *index
	pos *index
	osp *index

	graphs  map[uint32]int // graph term id → quad count
	derived int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		dict:    newDictionary(),
		records: make(map[uint32]*record),
		byKey:   make(map[string]uint32),
		live:    roaring.New(),
		spo:     newIndex("spo", [3]int{posS, posP, posO}),
		pos:     newIndex("pos", [3]int{posP, posO, posS}),
		osp:     newIndex("osp", [3]int{posO, posS, posP}),
		graphs:  make(map[uint32]int),
	}
}

// Add inserts q. Returns true iff the quad was not already present.
//
// An invalid quad returns an error and nothing is inserted. Adding an
// asserted quad that is stored as derived promotes it to asserted and
// returns false.
func (s *Store) Add(q rdf.Quad) (bool, error) {
	if err := q.Validate(); err != nil {
		return false, err
	}
	q = canonicalQuad(q)

	key := q.Key()
	if id, ok := s.byKey[key]; ok {
		rec := s.records[id]
		if rec.prov == rdf.Derived && q.Provenance == rdf.Asserted {
			rec.prov = rdf.Asserted
			s.derived--
		}
		return false, nil
	}

	if s.nextID == ^uint32(0) {
		return false, fmt.Errorf("store: quad id space exhausted")
	}
	rec := &record{
		spo: [3]uint32{
			s.dict.intern(q.Subject),
			s.dict.intern(q.Predicate),
			s.dict.intern(q.Object),
		},
		graph: s.dict.intern(q.Graph),
		prov:  q.Provenance,
	}
	id := s.nextID
	s.nextID++
	s.insert(id, key, rec)
	return true, nil
}

// insert is the single routine that updates every index on addition.
func (s *Store) insert(id uint32, key string, rec *record) {
	s.records[id] = rec
	s.byKey[key] = id
	s.live.Add(id)
	s.spo.insert(rec.spo, id)
	s.pos.insert(rec.spo, id)
	s.osp.insert(rec.spo, id)
	s.graphs[rec.graph]++
	if rec.prov == rdf.Derived {
		s.derived++
	}
}

// Remove deletes q. Returns true iff it was present. Provenance is ignored.
func (s *Store) Remove(q rdf.Quad) bool {
	key := canonicalQuad(q).Key()
	id, ok := s.byKey[key]
	if !ok {
		return false
	}
	s.delete(id, key)
	return true
}

// delete is the single routine that updates every index on removal.
func (s *Store) delete(id uint32, key string) {
	rec := s.records[id]
	delete(s.records, id)
	delete(s.byKey, key)
	s.live.Remove(id)
	s.spo.delete(rec.spo, id)
	s.pos.delete(rec.spo, id)
	s.osp.delete(rec.spo, id)
	if s.graphs[rec.graph]--; s.graphs[rec.graph] == 0 {
		delete(s.graphs, rec.graph)
	}
	if rec.prov == rdf.Derived {
		s.derived--
	}
}

// Contains reports whether q is stored, regardless of provenance.
func (s *Store) Contains(q rdf.Quad) bool {
	_, ok := s.byKey[canonicalQuad(q).Key()]
	return ok
}

// Provenance returns the stored provenance of q.
func (s *Store) Provenance(q rdf.Quad) (rdf.Provenance, bool) {
	id, ok := s.byKey[canonicalQuad(q).Key()]
	if !ok {
		return 0, false
	}
	return s.records[id].prov, true
}

// Size returns the number of stored quads.
func (s *Store) Size() int {
	return len(s.records)
}

// Count returns the number of stored quads with provenance p.
func (s *Store) Count(p rdf.Provenance) int {
	if p == rdf.Derived {
		return s.derived
	}
	return len(s.records) - s.derived
}

// All iterates every stored quad in insertion order.
//
// The store must not be mutated while iterating.
func (s *Store) All() iter.Seq[rdf.Quad] {
	return func(yield func(rdf.Quad) bool) {
		it := s.live.Iterator()
		for it.HasNext() {
			if !yield(s.quad(it.Next())) {
				return
			}
		}
	}
}

// Quads returns every stored quad in insertion order.
func (s *Store) Quads() []rdf.Quad {
	out := make([]rdf.Quad, 0, len(s.records))
	for q := range s.All() {
		out = append(out, q)
	}
	return out
}

// Graphs returns the distinct graphs holding at least one quad, sorted.
// The default graph is reported as "".
func (s *Store) Graphs() []rdf.IRI {
	out := make([]rdf.IRI, 0, len(s.graphs))
	for id := range s.graphs {
		out = append(out, s.dict.term(id).(rdf.IRI))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Terms returns the number of interned terms.
func (s *Store) Terms() int {
	return s.dict.len()
}

// quad materializes the stored quad with id.
func (s *Store) quad(id uint32) rdf.Quad {
	rec := s.records[id]
	return rdf.Quad{
		Subject:    s.dict.term(rec.spo[posS]),
		Predicate:  s.dict.term(rec.spo[posP]),
		Object:     s.dict.term(rec.spo[posO]),
		Graph:      s.dict.term(rec.graph).(rdf.IRI),
		Provenance: rec.prov,
	}
}

// canonicalQuad normalizes literal representations so that == on returned
// terms agrees with rdf.Key.
func canonicalQuad(q rdf.Quad) rdf.Quad {
	q.Subject = rdf.Canonical(q.Subject)
	q.Object = rdf.Canonical(q.Object)
	return q
}
