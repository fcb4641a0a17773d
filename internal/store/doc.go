// Package store provides the in-memory quad store.
//
// The store holds a set of quads with three permutation indices:
//   - SPO: subject → predicate → object
//   - POS: predicate → object → subject
//   - OSP: object → subject → predicate
//
// Terms are interned in a dictionary and referenced by uint32 ids. Every
// quad gets a monotonically increasing uint32 id; index leaves are Roaring
// bitmaps of quad ids, so a leaf holds the same triple across graphs.
//
// # Access Paths
//
// Match picks, on every call, the index whose bound prefix has the fewest
// candidate quads, or a full scan when that is cheaper or nothing is bound.
// Results are returned in quad-id (insertion) order.
//
// # Provenance
//
// A quad is either asserted or derived. Provenance is not part of identity:
// re-adding a derived quad as asserted promotes it, re-adding an asserted
// quad as derived is a no-op.
//
// # Concurrency
//
// Concurrent readers (Match, Contains, Size, All) are safe. Mutation requires
// external serialization; the store performs no locking.
package store
