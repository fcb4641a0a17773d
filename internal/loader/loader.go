// Package loader reads YAML fact files into a store.
//
// A fact file declares prefixes, an optional default graph, and facts as
// three- or four-element sequences (subject, predicate, object, graph):
//
//	prefixes: { ex: "http://example.org/" }
//	graph: ex:g
//	facts:
//	  - [ex:a, a, ex:Person]
//	  - [ex:a, ex:hasAge, 17]
//	  - [ex:a, ex:name, '"Ann"@en', ex:other]
//
// Subject, predicate and graph use query term syntax. Objects may also be
// YAML scalars: integers, floats and booleans become xsd:integer,
// xsd:double and xsd:boolean literals, and strings that do not parse as a
// term become plain string literals.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/semgraph/internal/parser"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/store"
)

// File is a parsed fact file.
type File struct {
	Prefixes map[string]string
	Graph    rdf.IRI
	Quads    []rdf.Quad
}

// LoadError reports a fact that cannot be read or stored.
// Fact is the zero-based index in the facts list, or -1 for file-level errors.
type LoadError struct {
	Fact    int
	Message string
}

func (e *LoadError) Error() string {
	if e.Fact < 0 {
		return "facts: " + e.Message
	}
	return fmt.Sprintf("facts[%d]: %s", e.Fact, e.Message)
}

type rawFile struct {
	Prefixes map[string]string `yaml:"prefixes"`
	Graph    string            `yaml:"graph"`
	Facts    []yaml.Node       `yaml:"facts"`
}

// Parse decodes a fact file. Unknown top-level fields are rejected.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, &LoadError{Fact: -1, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return Compile(raw.Prefixes, raw.Graph, raw.Facts)
}

// ParseFile reads and decodes a fact file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Compile converts already-decoded YAML fact sequences, as embedded in
// other documents, into a File. Declared prefixes extend the standard ones.
func Compile(declared map[string]string, graph string, facts []yaml.Node) (*File, error) {
	prefixes := rdf.StandardPrefixes()
	for k, v := range declared {
		prefixes[k] = v
	}

	f := &File{Prefixes: prefixes, Quads: make([]rdf.Quad, 0, len(facts))}
	if graph != "" {
		g, err := iriTerm(graph, prefixes)
		if err != nil {
			return nil, &LoadError{Fact: -1, Message: "graph: " + err.Error()}
		}
		f.Graph = g
	}

	for i := range facts {
		q, err := compileFact(&facts[i], f.Graph, prefixes)
		if err != nil {
			return nil, &LoadError{Fact: i, Message: err.Error()}
		}
		f.Quads = append(f.Quads, q)
	}
	return f, nil
}

func compileFact(n *yaml.Node, graph rdf.IRI, prefixes map[string]string) (rdf.Quad, error) {
	if n.Kind != yaml.SequenceNode {
		return rdf.Quad{}, fmt.Errorf("line %d: fact must be a sequence", n.Line)
	}
	if len(n.Content) != 3 && len(n.Content) != 4 {
		return rdf.Quad{}, fmt.Errorf("line %d: fact must have 3 or 4 elements, found %d", n.Line, len(n.Content))
	}

	s, err := nodeTerm(n.Content[0], prefixes)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("subject: %w", err)
	}
	p, err := nodeTerm(n.Content[1], prefixes)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("predicate: %w", err)
	}
	o, err := objectTerm(n.Content[2], prefixes)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("object: %w", err)
	}

	q := rdf.NewQuad(s, p, o).InGraph(graph)
	if len(n.Content) == 4 {
		g, err := iriTerm(n.Content[3].Value, prefixes)
		if err != nil {
			return rdf.Quad{}, fmt.Errorf("graph: %w", err)
		}
		q = q.InGraph(g)
	}
	if err := q.Validate(); err != nil {
		return rdf.Quad{}, err
	}
	return q, nil
}

// nodeTerm parses a scalar in term syntax.
func nodeTerm(n *yaml.Node, prefixes map[string]string) (rdf.Term, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	return parseTerm(n.Value, prefixes)
}

func parseTerm(text string, prefixes map[string]string) (rdf.Term, error) {
	node, err := parser.ParseTerm(text, prefixes)
	if err != nil {
		return nil, err
	}
	switch v := node.(type) {
	case query.TermNode:
		return v.Term, nil
	case query.PrefixedName:
		return nil, fmt.Errorf("undeclared prefix %q in %s", v.Prefix, v)
	default:
		return nil, fmt.Errorf("%s is not a concrete term", node)
	}
}

func iriTerm(text string, prefixes map[string]string) (rdf.IRI, error) {
	t, err := parseTerm(text, prefixes)
	if err != nil {
		return "", err
	}
	iri, ok := t.(rdf.IRI)
	if !ok {
		return "", fmt.Errorf("%s is not an IRI", t)
	}
	return iri, nil
}

// objectTerm maps YAML scalar tags to literals before falling back to
// term syntax.
func objectTerm(n *yaml.Node, prefixes map[string]string) (rdf.Term, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a scalar", n.Line)
	}

	switch n.ShortTag() {
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return rdf.NewInteger(i), nil
		}
		return rdf.NewTyped(n.Value, rdf.XSDInteger), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid float %q", n.Line, n.Value)
		}
		return rdf.NewDouble(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: invalid boolean %q", n.Line, n.Value)
		}
		return rdf.NewBoolean(b), nil
	case "!!null":
		return nil, fmt.Errorf("line %d: object is null", n.Line)
	}

	node, err := parser.ParseTerm(n.Value, prefixes)
	if err != nil {
		return rdf.NewString(n.Value), nil
	}
	switch v := node.(type) {
	case query.TermNode:
		return v.Term, nil
	case query.PrefixedName:
		return nil, fmt.Errorf("undeclared prefix %q in %s", v.Prefix, v)
	default:
		return rdf.NewString(n.Value), nil
	}
}

// Load adds every quad of f to st and returns how many were newly added.
// Facts already present are skipped. Loading stops at the first quad the
// store rejects.
func Load(st *store.Store, f *File) (int, error) {
	added := 0
	for i, q := range f.Quads {
		ok, err := st.Add(q)
		if err != nil {
			return added, &LoadError{Fact: i, Message: err.Error()}
		}
		if ok {
			added++
		}
	}
	return added, nil
}
