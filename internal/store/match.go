package store

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// AccessPath names the strategy Match uses for a pattern.
type AccessPath string

const (
	PathSPO      AccessPath = "spo"
	PathPOS      AccessPath = "pos"
	PathOSP      AccessPath = "osp"
	PathFullScan AccessPath = "scan"
	PathEmpty    AccessPath = "empty" // a bound term is not in the store
)

// plan is a resolved pattern: the bound term ids and the chosen access path.
type plan struct {
	path   AccessPath
	ix     *index
	prefix prefix

	bound    [3]bool
	ids      [3]uint32
	vars     [3]string // variable name per position, "" if not a variable
	graph    uint32
	hasGraph bool
	graphVar string
}

// Match returns every stored quad matching the pattern, in insertion order.
//
// Variables are wildcards, except that the same variable in two positions
// must match equal terms. The graph position follows query.TriplePattern
// semantics. A pattern containing an unresolved prefixed name matches
// nothing.
//
// The access path is chosen on every call from the current index counts.
func (s *Store) Match(p query.TriplePattern) []rdf.Quad {
	pl, ok := s.plan(p)
	if !ok {
		return []rdf.Quad{}
	}
	candidates := s.candidates(pl)

	out := make([]rdf.Quad, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()
		rec := s.records[id]
		if !pl.accepts(rec) {
			continue
		}
		out = append(out, s.quad(id))
	}
	return out
}

// Explain returns the access path and candidate count Match would use for p.
func (s *Store) Explain(p query.TriplePattern) (AccessPath, uint64) {
	pl, ok := s.plan(p)
	if !ok {
		return PathEmpty, 0
	}
	if pl.path == PathFullScan {
		return pl.path, uint64(len(s.records))
	}
	return pl.path, pl.ix.count(pl.prefix)
}

// plan resolves the pattern against the dictionary and picks an access path.
// Returns false if the pattern cannot match anything.
func (s *Store) plan(p query.TriplePattern) (*plan, bool) {
	pl := &plan{}
	for i, n := range p.Positions() {
		switch node := n.(type) {
		case nil:
			// Treated as a wildcard.
		case query.Variable:
			pl.vars[i] = string(node)
		case query.TermNode:
			if node.Term == nil {
				continue
			}
			id, ok := s.dict.lookup(rdf.Canonical(node.Term))
			if !ok {
				return nil, false
			}
			pl.bound[i] = true
			pl.ids[i] = id
		default:
			return nil, false
		}
	}

	switch g := p.Graph.(type) {
	case nil:
	case query.Variable:
		pl.graphVar = string(g)
	case query.TermNode:
		iri, ok := g.Term.(rdf.IRI)
		if !ok {
			return nil, false
		}
		id, ok := s.dict.lookup(iri)
		if !ok {
			return nil, false
		}
		if _, used := s.graphs[id]; !used {
			return nil, false
		}
		pl.graph = id
		pl.hasGraph = true
	default:
		return nil, false
	}

	pl.path = PathFullScan
	best := uint64(len(s.records))
	for _, ix := range [...]*index{s.spo, s.pos, s.osp} {
		pre := pl.prefixFor(ix)
		if pre.n == 0 {
			continue
		}
		c := ix.count(pre)
		if c == 0 {
			return nil, false
		}
		if c < best {
			best = c
			pl.path = AccessPath(ix.name)
			pl.ix = ix
			pl.prefix = pre
		}
	}
	return pl, true
}

// prefixFor returns the longest bound key prefix of ix for this plan.
func (pl *plan) prefixFor(ix *index) prefix {
	var pre prefix
	for _, pos := range ix.order {
		if !pl.bound[pos] {
			break
		}
		pre.keys[pre.n] = pl.ids[pos]
		pre.n++
	}
	return pre
}

func (s *Store) candidates(pl *plan) *roaring.Bitmap {
	if pl.path == PathFullScan {
		return s.live
	}
	return pl.ix.collect(pl.prefix)
}

// accepts checks the positions the access path did not constrain, the graph
// and repeated variables.
func (pl *plan) accepts(rec *record) bool {
	for i := 0; i < 3; i++ {
		if pl.bound[i] && rec.spo[i] != pl.ids[i] {
			return false
		}
	}
	if pl.hasGraph && rec.graph != pl.graph {
		return false
	}
	for i := 0; i < 3; i++ {
		if pl.vars[i] == "" {
			continue
		}
		for j := i + 1; j < 3; j++ {
			if pl.vars[j] == pl.vars[i] && rec.spo[j] != rec.spo[i] {
				return false
			}
		}
		if pl.graphVar == pl.vars[i] && rec.graph != rec.spo[i] {
			return false
		}
	}
	return true
}
