package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/roach88/semgraph/internal/loader"
	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/store"
)

// AssertionContext provides what assertions are evaluated against.
type AssertionContext struct {
	Store    *store.Store
	Prefixes map[string]string
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Index    int
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertions[%d] failed: %s\n", e.Index, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
// All assertions are evaluated; a failure does not stop the rest.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(i, a, result, actx); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluateAssertion(i int, a Assertion, result *Result, actx *AssertionContext) error {
	switch a.Type {
	case AssertContains:
		return assertContains(i, a, actx)
	case AssertNotContains:
		return assertNotContains(i, a, actx)
	case AssertSize:
		return assertSize(i, a, actx)
	case AssertTracePath:
		return assertTracePath(i, a, result)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
}

func assertionQuad(i int, a Assertion, actx *AssertionContext) (rdf.Quad, error) {
	f, err := loader.Compile(actx.Prefixes, "", []yaml.Node{a.Quad})
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("assertions[%d]: %w", i, err)
	}
	return f.Quads[0], nil
}

func assertContains(i int, a Assertion, actx *AssertionContext) error {
	q, err := assertionQuad(i, a, actx)
	if err != nil {
		return err
	}

	prov, ok := actx.Store.Provenance(q)
	if !ok {
		return &AssertionError{
			Index:    i,
			Type:     AssertContains,
			Expected: q.String(),
			Actual:   "not found in store",
		}
	}
	if a.Provenance != "" && prov.String() != a.Provenance {
		return &AssertionError{
			Index:    i,
			Type:     AssertContains,
			Expected: fmt.Sprintf("%s with provenance %s", q, a.Provenance),
			Actual:   "provenance " + prov.String(),
		}
	}
	return nil
}

func assertNotContains(i int, a Assertion, actx *AssertionContext) error {
	q, err := assertionQuad(i, a, actx)
	if err != nil {
		return err
	}
	if actx.Store.Contains(q) {
		return &AssertionError{
			Index:    i,
			Type:     AssertNotContains,
			Expected: q.String() + " absent",
			Actual:   "found in store",
		}
	}
	return nil
}

func assertSize(i int, a Assertion, actx *AssertionContext) error {
	n := actx.Store.Size()
	what := "quads"
	if a.Provenance != "" {
		p, err := rdf.ParseProvenance(a.Provenance)
		if err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
		n = actx.Store.Count(p)
		what = a.Provenance + " quads"
	}

	if n != *a.Count {
		return &AssertionError{
			Index:    i,
			Type:     AssertSize,
			Expected: fmt.Sprintf("%d %s", *a.Count, what),
			Actual:   fmt.Sprintf("%d %s", n, what),
		}
	}
	return nil
}

// assertTracePath counts the values Path selects from the JSON form of the
// trace. The trace root is the array of step events.
func assertTracePath(i int, a Assertion, result *Result) error {
	x, err := jp.ParseString(a.Path)
	if err != nil {
		return fmt.Errorf("assertions[%d]: invalid path %q: %w", i, a.Path, err)
	}

	data, err := traceDocument(result.Trace)
	if err != nil {
		return fmt.Errorf("assertions[%d]: %w", i, err)
	}

	matches := x.Get(data)
	if len(matches) != *a.Count {
		return &AssertionError{
			Index:    i,
			Type:     AssertTracePath,
			Expected: fmt.Sprintf("%d match(es) for %s", *a.Count, a.Path),
			Actual:   fmt.Sprintf("%d match(es): %s", len(matches), oj.JSON(matches)),
		}
	}
	return nil
}

// traceDocument converts the trace to generic JSON values.
func traceDocument(trace []TraceEvent) (any, error) {
	b, err := json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("encoding trace: %w", err)
	}
	return oj.Parse(b)
}
