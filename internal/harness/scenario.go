package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario for the store, query and inference
// packages.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Prefixes are shared by facts, rules, queries and assertions,
	// in addition to rdf, rdfs, xsd and owl.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`

	// Facts are loaded as asserted quads before the first step.
	// Each fact is a [subject, predicate, object] or
	// [subject, predicate, object, graph] sequence.
	Facts []yaml.Node `yaml:"facts,omitempty"`

	// Rules is CUE source declaring a rule struct.
	Rules string `yaml:"rules,omitempty"`

	// MaxPasses overrides the engine pass cap when positive.
	MaxPasses int `yaml:"max_passes,omitempty"`

	// Steps run in order. Every step is recorded in the trace.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store and the trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is either an inference run or a query.
type Step struct {
	// Infer runs the engine to a fixpoint.
	Infer bool `yaml:"infer,omitempty"`

	// Query is SPARQL-subset text to execute.
	Query string `yaml:"query,omitempty"`

	// ExpectAdded is the number of quads the infer step must add.
	ExpectAdded *int `yaml:"expect_added,omitempty"`

	// ExpectCount is the number of solutions the query step must return.
	ExpectCount *int `yaml:"expect_count,omitempty"`

	// ExpectRows are the expected solutions of a query step, compared as a
	// bag. Values use term syntax.
	ExpectRows []map[string]string `yaml:"expect_rows,omitempty"`

	// ExpectError is the category of an expected failure. The step passes
	// only if it fails with this category:
	//   - infer: "diverged"
	//   - query: "parse" or an execution code such as "UNRESOLVED_PREFIX"
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Kind returns "infer" or "query".
func (s Step) Kind() string {
	if s.Infer {
		return StepInfer
	}
	return StepQuery
}

// Step kinds.
const (
	StepInfer = "infer"
	StepQuery = "query"
)

// Assertion validates the final store or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "contains": Quad is in the store
	// - "not_contains": Quad is not in the store
	// - "size": the store holds Count quads, optionally only of Provenance
	// - "trace_path": Path matches Count values of the JSON trace
	Type string `yaml:"type"`

	// Quad is the fact to look up (contains, not_contains).
	Quad yaml.Node `yaml:"quad,omitempty"`

	// Provenance restricts size to "asserted" or "derived", and requires a
	// contained quad to have that provenance.
	Provenance string `yaml:"provenance,omitempty"`

	// Count is the expected number (size, trace_path).
	Count *int `yaml:"count,omitempty"`

	// Path is a JSONPath expression over the trace (trace_path).
	Path string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertContains    = "contains"
	AssertNotContains = "not_contains"
	AssertSize        = "size"
	AssertTracePath   = "trace_path"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files directly under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name must not contain path separators")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.MaxPasses < 0 {
		return fmt.Errorf("max_passes must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	switch {
	case s.Infer && s.Query != "":
		return fmt.Errorf("steps[%d]: infer and query are mutually exclusive", index)
	case !s.Infer && s.Query == "":
		return fmt.Errorf("steps[%d]: one of infer or query is required", index)
	}

	if s.Infer {
		if s.ExpectCount != nil || s.ExpectRows != nil {
			return fmt.Errorf("steps[%d]: expect_count and expect_rows apply to query steps", index)
		}
		if s.ExpectError != "" && s.ExpectError != ErrorDiverged {
			return fmt.Errorf("steps[%d]: unknown infer error %q", index, s.ExpectError)
		}
		return nil
	}

	if s.ExpectAdded != nil {
		return fmt.Errorf("steps[%d]: expect_added applies to infer steps", index)
	}
	if s.ExpectCount != nil && *s.ExpectCount < 0 {
		return fmt.Errorf("steps[%d]: expect_count must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertContains, AssertNotContains:
		if a.Quad.Kind == 0 {
			return fmt.Errorf("assertions[%d]: quad is required for %s", index, a.Type)
		}
	case AssertSize:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for size", index)
		}
	case AssertTracePath:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for trace_path", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for trace_path", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Provenance != "" && a.Provenance != "asserted" && a.Provenance != "derived" {
		return fmt.Errorf("assertions[%d]: provenance must be asserted or derived", index)
	}
	return nil
}
