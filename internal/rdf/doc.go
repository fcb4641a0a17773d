// Package rdf provides the term and quad types shared by every semgraph package.
//
// This package contains type definitions and identity helpers only. All other
// internal packages import rdf; rdf imports nothing internal. This keeps the
// data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Term is sealed: IRI, BlankNode and Literal are the only variants
//   - Quad identity never includes Provenance (set semantics over facts)
//   - Literal lexical forms are NFC-normalized at construction
//   - All identity computations go through Key, never through String
package rdf
