package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleFacts = `prefixes:
  ex: "http://example.org/"
facts:
  - [ex:alice, ex:hasAge, 17]
  - [ex:bob, ex:hasAge, 30]
  - [ex:alice, ex:knows, ex:bob]
`

const minorRules = `package rules

prefix: ex: "http://example.org/"

rule: minor: {
	when:  "?p ex:hasAge ?age"
	where: "?age < 18"
	then:  "?p a ex:Minor"
}
`

const successorRules = `package rules

prefix: ex: "http://example.org/"

rule: successor: {
	when: "?x ex:next ?y"
	then: "?y ex:next _:n"
}
`

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// loadedDB returns a snapshot path holding the people facts.
func loadedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "graph.db")
	facts := writeFile(t, dir, "people.yaml", peopleFacts)
	_, _, err := execute(t, "load", facts, "--db", db)
	require.NoError(t, err)
	return db
}

func rulesDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "rules.cue", src)
	return dir
}

func decode[T any](t *testing.T, out string) (CLIResponse, T) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	var data T
	if len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, &data))
	}
	return raw.CLIResponse, data
}

// ============================================================================
// root
// ============================================================================

func TestRoot_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, "stats", "--db", filepath.Join(t.TempDir(), "x.db"), "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRoot_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range NewRootCommand().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"load", "query", "infer", "validate", "test", "stats"} {
		assert.True(t, names[want], want)
	}
}

// ============================================================================
// load
// ============================================================================

func TestLoad_CountsNewQuads(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "graph.db")
	facts := writeFile(t, dir, "people.yaml", peopleFacts)

	out, _, err := execute(t, "load", facts, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Loaded 3 new quad(s) from 1 file(s); store has 3 quad(s)\n", out)

	out, _, err = execute(t, "load", facts, "--db", db, "--format", "json")
	require.NoError(t, err)
	resp, result := decode[LoadResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, LoadResult{Files: 1, Added: 0, StoreSize: 3}, result)
}

func TestLoad_BadFactsLeaveSnapshotUntouched(t *testing.T) {
	db := loadedDB(t)
	bad := writeFile(t, t.TempDir(), "bad.yaml", "facts:\n  - [ex:a, ex:b]\n")

	out, _, err := execute(t, "load", bad, "--db", db, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp, _ := decode[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoad, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "facts[0]")

	out, _, err = execute(t, "stats", "--db", db, "--format", "json")
	require.NoError(t, err)
	_, stats := decode[StatsResult](t, out)
	assert.Equal(t, 3, stats.Quads)
}

func TestLoad_RequiresDB(t *testing.T) {
	facts := writeFile(t, t.TempDir(), "people.yaml", peopleFacts)
	_, _, err := execute(t, "load", facts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// ============================================================================
// query
// ============================================================================

func TestQuery_Table(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "query", "SELECT ?p ?age WHERE { ?p ex:hasAge ?age }", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "?p")
	assert.Contains(t, out, "<http://example.org/alice>")
	assert.Contains(t, out, "<http://example.org/bob>")
	assert.Contains(t, out, "2 solution(s)\n")
}

func TestQuery_JSON(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "query",
		"SELECT ?who WHERE { ?who ex:knows ?x . FILTER(?x = ex:bob) }",
		"--db", db, "--format", "json")
	require.NoError(t, err)

	resp, result := decode[QueryResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"who"}, result.Variables)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, []map[string]string{{"who": "<http://example.org/alice>"}}, result.Rows)
}

func TestQuery_PrefixFlag(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "query", "SELECT * WHERE { ?p people:hasAge 30 }",
		"--db", db, "--prefix", "people=http://example.org/", "--format", "json")
	require.NoError(t, err)
	_, result := decode[QueryResult](t, out)
	assert.Equal(t, 1, result.Count)

	_, _, err = execute(t, "query", "SELECT * WHERE { ?s ?p ?o }", "--db", db, "--prefix", "broken")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQuery_SinglePatternWithFilter(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "query",
		"SELECT ?p WHERE { ?p ex:hasAge ?age FILTER(?age > 20) }",
		"--db", db, "--format", "json")
	require.NoError(t, err)
	_, result := decode[QueryResult](t, out)
	assert.Equal(t, []map[string]string{{"p": "<http://example.org/bob>"}}, result.Rows)
}

func TestQuery_SelectFailureFallsBackToStore(t *testing.T) {
	db := loadedDB(t)

	out, errOut, err := execute(t, "query", `SELECT ?p WHERE { "x" ?p ?o }`, "--db", db, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "0 solution(s)\n")
	assert.Contains(t, errOut, "loading store")
}

func TestQuery_Errors(t *testing.T) {
	db := loadedDB(t)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"parse error", "SELECT ?p WHERE { ?p ex:hasAge }", ErrCodeParse},
		{"undeclared prefix", "SELECT ?p WHERE { ?p nope:x ?o }", "UNRESOLVED_PREFIX"},
		{"unknown variable", "SELECT ?zzz WHERE { ?p ex:hasAge ?age }", "UNKNOWN_VARIABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "query", tt.query, "--db", db, "--format", "json")
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			resp, _ := decode[any](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

// ============================================================================
// infer
// ============================================================================

func TestInfer_DerivesAndSaves(t *testing.T) {
	db := loadedDB(t)
	rules := rulesDir(t, minorRules)

	out, _, err := execute(t, "infer", rules, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "+ ")
	assert.Contains(t, out, "Derived 1 quad(s) in 2 pass(es); store has 4 quad(s)\n")

	out, _, err = execute(t, "stats", "--db", db, "--format", "json")
	require.NoError(t, err)
	_, stats := decode[StatsResult](t, out)
	assert.Equal(t, 4, stats.Quads)
	assert.Equal(t, 3, stats.Asserted)
	assert.Equal(t, 1, stats.Derived)

	// Nothing left to derive
	out, _, err = execute(t, "infer", rules, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Derived 0 quad(s) in 1 pass(es); store has 4 quad(s)\n")
}

func TestInfer_DivergedSavesPartialResult(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "chain.db")
	facts := writeFile(t, dir, "chain.yaml", "prefixes:\n  ex: \"http://example.org/\"\nfacts:\n  - [ex:a, ex:next, ex:b]\n")
	_, _, err := execute(t, "load", facts, "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "infer", rulesDir(t, successorRules), "--db", db, "--max-passes", "2", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decode[InferResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDiverged, resp.Error.Code)
	assert.Len(t, result.Added, 3)
	assert.Equal(t, 2, result.Passes)

	out, _, err = execute(t, "stats", "--db", db, "--format", "json")
	require.NoError(t, err)
	_, stats := decode[StatsResult](t, out)
	assert.Equal(t, 4, stats.Quads)
}

func TestInfer_Metrics(t *testing.T) {
	db := loadedDB(t)

	_, errOut, err := execute(t, "infer", rulesDir(t, minorRules), "--db", db, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, errOut, `semgraph_inference_runs_total{outcome="ok"} 1`)
	assert.Contains(t, errOut, "semgraph_quads_derived_total 1")
	assert.Contains(t, errOut, "semgraph_rules_registered 1")
}

func TestInfer_RuleErrors(t *testing.T) {
	db := loadedDB(t)

	_, _, err := execute(t, "infer", filepath.Join(t.TempDir(), "missing"), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	unbound := rulesDir(t, "package rules\n\nrule: bad: {\n\twhen: \"?p a ?c\"\n\tthen: \"?p a ?z\"\n}\n")
	_, _, err = execute(t, "infer", unbound, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E114")
}

// ============================================================================
// validate
// ============================================================================

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate", rulesDir(t, minorRules))
	require.NoError(t, err)
	assert.Equal(t, "✓ 1 rule(s) valid in 1 file(s)\n", out)
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	src := `package rules

rule: a: {
	when: "?p a ?c"
	then: "?p a ?z"
}

rule: b: {
	when:  "?p a ?c"
	where: "?missing > 1"
	then:  "?p a ?c"
}
`
	out, _, err := execute(t, "validate", rulesDir(t, src), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decode[ValidationResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	assert.Equal(t, 2, result.Rules)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{"E114", "E115"}, codes)
}

func TestValidate_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", "/nonexistent/rules")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	_, _, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}

// ============================================================================
// stats
// ============================================================================

func TestStats_Text(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "quads:    3 (3 asserted, 0 derived)\n")
	assert.Contains(t, out, "terms:    ")
	assert.Contains(t, out, "graphs:   1\n  (default)\n")
}

func TestStats_Prefixes(t *testing.T) {
	db := loadedDB(t)

	out, _, err := execute(t, "stats", "--db", db, "--format", "json")
	require.NoError(t, err)
	_, stats := decode[StatsResult](t, out)
	assert.Contains(t, stats.Prefixes, "ex")
	assert.Contains(t, stats.Prefixes, "rdf")
	assert.Equal(t, []string{"(default)"}, stats.Graphs)
}
