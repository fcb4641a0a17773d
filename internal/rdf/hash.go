package rdf

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefix for content-addressed quad identity.
// The version suffix is part of every hashed key.
const DomainQuad = "semgraph/quad/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QuadID computes the content-addressed ID of a quad.
// The ID is stable across processes and excludes provenance.
func QuadID(q Quad) string {
	return hashWithDomain(DomainQuad, []byte(q.Key()))
}
