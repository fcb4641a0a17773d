package store

import (
	"github.com/RoaringBitmap/roaring"
)

// index is a three-level permutation index over term ids.
//
// Each level tracks how many quads sit beneath it so candidate counts for a
// bound prefix are O(1). Leaves are bitmaps of quad ids.
type index struct {
	name  string
	order [3]int // positions (0=s, 1=p, 2=o) in key order
	root  map[uint32]*level1
}

type level1 struct {
	count    uint64
	children map[uint32]*level2
}

type level2 struct {
	count  uint64
	leaves map[uint32]*roaring.Bitmap
}

func newIndex(name string, order [3]int) *index {
	return &index{
		name:  name,
		order: order,
		root:  make(map[uint32]*level1),
	}
}

// keys permutes spo into this index's key order.
func (ix *index) keys(spo [3]uint32) (uint32, uint32, uint32) {
	return spo[ix.order[0]], spo[ix.order[1]], spo[ix.order[2]]
}

func (ix *index) insert(spo [3]uint32, quad uint32) {
	a, b, c := ix.keys(spo)
	l1, ok := ix.root[a]
	if !ok {
		l1 = &level1{children: make(map[uint32]*level2)}
		ix.root[a] = l1
	}
	l2, ok := l1.children[b]
	if !ok {
		l2 = &level2{leaves: make(map[uint32]*roaring.Bitmap)}
		l1.children[b] = l2
	}
	bm, ok := l2.leaves[c]
	if !ok {
		bm = roaring.New()
		l2.leaves[c] = bm
	}
	if bm.CheckedAdd(quad) {
		l1.count++
		l2.count++
	}
}

func (ix *index) delete(spo [3]uint32, quad uint32) {
	a, b, c := ix.keys(spo)
	l1, ok := ix.root[a]
	if !ok {
		return
	}
	l2, ok := l1.children[b]
	if !ok {
		return
	}
	bm, ok := l2.leaves[c]
	if !ok || !bm.CheckedRemove(quad) {
		return
	}
	l1.count--
	l2.count--
	if bm.IsEmpty() {
		delete(l2.leaves, c)
	}
	if l2.count == 0 {
		delete(l1.children, b)
	}
	if l1.count == 0 {
		delete(ix.root, a)
	}
}

// prefix is a partially bound key in index order. Only the first n keys are
// meaningful.
type prefix struct {
	keys [3]uint32
	n    int
}

// count returns the number of quads under the prefix.
func (ix *index) count(p prefix) uint64 {
	if p.n == 0 {
		return 0
	}
	l1, ok := ix.root[p.keys[0]]
	if !ok {
		return 0
	}
	if p.n == 1 {
		return l1.count
	}
	l2, ok := l1.children[p.keys[1]]
	if !ok {
		return 0
	}
	if p.n == 2 {
		return l2.count
	}
	bm, ok := l2.leaves[p.keys[2]]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

// collect returns the union of quad ids under the prefix.
func (ix *index) collect(p prefix) *roaring.Bitmap {
	out := roaring.New()
	l1, ok := ix.root[p.keys[0]]
	if !ok {
		return out
	}
	if p.n == 1 {
		for _, l2 := range l1.children {
			for _, bm := range l2.leaves {
				out.Or(bm)
			}
		}
		return out
	}
	l2, ok := l1.children[p.keys[1]]
	if !ok {
		return out
	}
	if p.n == 2 {
		for _, bm := range l2.leaves {
			out.Or(bm)
		}
		return out
	}
	if bm, ok := l2.leaves[p.keys[2]]; ok {
		out.Or(bm)
	}
	return out
}
