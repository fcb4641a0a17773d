package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semgraph/internal/infer"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
	semtest "github.com/roach88/semgraph/internal/testutil"
)

const minorSource = `
prefix: ex: "http://example.org/"

rule: minor: {
	when:  ["?p ex:hasAge ?age"]
	where: "?age < 18"
	then:  "?p a ex:Minor"
}

rule: "subclass-transitive": {
	when: "?a rdfs:subClassOf ?b . ?b rdfs:subClassOf ?c"
	then: "?a rdfs:subClassOf ?c"
}
`

// ============================================================================
// CompileRule
// ============================================================================

func TestCompileRule_Basic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(minorSource)
	require.NoError(t, v.Err())

	prefixes, err := compilePrefixes(v)
	require.NoError(t, err)
	assert.Equal(t, semtest.EX, prefixes["ex"])
	assert.Equal(t, rdf.RDFSNamespace, prefixes["rdfs"])

	r, err := CompileRule(v.LookupPath(cue.ParsePath("rule.minor")), prefixes)
	require.NoError(t, err)

	assert.Equal(t, "minor", r.Name)
	require.Len(t, r.Antecedent, 1)
	assert.Equal(t, query.T(semtest.IRI("hasAge")), r.Antecedent[0].Predicate)
	assert.Equal(t, query.V("p"), r.Conclusion.Subject)
	assert.Equal(t, query.T(rdf.RDFType), r.Conclusion.Predicate)
	assert.Equal(t, query.T(semtest.IRI("Minor")), r.Conclusion.Object)

	cond, ok := r.Condition.(infer.ExprCondition)
	require.True(t, ok)
	assert.Equal(t, "(?age < 18)", cond.String())
}

func TestCompileRule_QuotedNameAndStringWhen(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(minorSource)
	require.NoError(t, v.Err())

	r, err := CompileRule(v.LookupPath(cue.ParsePath(`rule."subclass-transitive"`)), rdf.StandardPrefixes())
	require.NoError(t, err)
	assert.Equal(t, "subclass-transitive", r.Name)
	assert.Len(t, r.Antecedent, 2)
	assert.Nil(t, r.Condition)
}

func TestCompileRule_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing when", `rule: r: { then: "?x a ?y" }`, "when"},
		{"when not a list", `rule: r: { when: 3, then: "?x a ?y" }`, "when"},
		{"when element not a string", `rule: r: { when: [1], then: "?x a ?y" }`, "when[0]"},
		{"bad pattern", `rule: r: { when: ["?x ?y"], then: "?x a ?y" }`, "when[0]"},
		{"missing then", `rule: r: { when: ["?x a ?y"] }`, "then"},
		{"two conclusions", `rule: r: { when: ["?x a ?y"], then: "?x a ?y . ?y a ?x" }`, "then"},
		{"bad where", `rule: r: { when: ["?x a ?y"], where: "?x <", then: "?x a ?y" }`, "where"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileRule(v.LookupPath(cue.ParsePath("rule.r")), rdf.StandardPrefixes())
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileRule_UnknownPrefixIsKept(t *testing.T) {
	v := cuecontext.New().CompileString(`rule: r: { when: ["?x nope:p ?y"], then: "?x a ?y" }`)
	r, err := CompileRule(v.LookupPath(cue.ParsePath("rule.r")), rdf.StandardPrefixes())
	require.NoError(t, err)

	errs := Validate(*r)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnresolvedPrefix, errs[0].Code)
}

// ============================================================================
// CompileSource / LoadDir
// ============================================================================

func TestCompileSource_FieldOrder(t *testing.T) {
	res, errs := CompileSource("rules.cue", minorSource, LoadModeCollectAll)
	require.Empty(t, errs)
	require.Len(t, res.Rules, 2)
	assert.Equal(t, "minor", res.Rules[0].Name)
	assert.Equal(t, "subclass-transitive", res.Rules[1].Name)
	assert.Equal(t, 1, res.FileCount)
}

func TestCompileSource_SyntaxError(t *testing.T) {
	_, errs := CompileSource("broken.cue", `rule: r: {`, LoadModeFailFast)
	require.Len(t, errs, 1)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
}

func TestCompileSource_NoRules(t *testing.T) {
	_, errs := CompileSource("empty.cue", `prefix: ex: "http://example.org/"`, LoadModeFailFast)
	require.Len(t, errs, 1)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeNoRules, le.Code)
}

const twoBadRules = `
rule: a: { then: "?x a ?y" }
rule: b: { when: ["?x a ?y"] }
rule: c: { when: ["?x a ?y"], then: "?y a ?x" }
`

func TestCompileSource_Modes(t *testing.T) {
	res, errs := CompileSource("bad.cue", twoBadRules, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Empty(t, res.Rules)

	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeWhen, le.Code)
	assert.Equal(t, "a", le.Rule)

	res, errs = CompileSource("bad.cue", twoBadRules, LoadModeCollectAll)
	require.Len(t, errs, 2)
	require.Len(t, res.Rules, 1)
	assert.Equal(t, "c", res.Rules[0].Name)
	require.True(t, errors.As(errs[1], &le))
	assert.Equal(t, ErrCodeThen, le.Code)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.cue"), []byte(`package rules

prefix: ex: "http://example.org/"
rule: minor: {
	when:  ["?p ex:hasAge ?age"]
	where: "?age < 18"
	then:  "?p a ex:Minor"
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.cue"), []byte(`package rules

rule: adult: {
	when:  ["?p ex:hasAge ?age"]
	where: "?age >= 18"
	then:  "?p a ex:Adult"
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	res, errs := LoadDir(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 2, res.FileCount)
	require.Len(t, res.Rules, 2)

	e := infer.New(infer.WithLogger(semtest.DiscardLogger()))
	for _, r := range res.Rules {
		require.NoError(t, e.AddRule(r))
	}
	st := semtest.NewStore(t,
		semtest.Fact("kid", "hasAge", rdf.NewInteger(9)),
		semtest.Fact("mom", "hasAge", rdf.NewInteger(39)),
	)
	added, err := e.Infer(st)
	require.NoError(t, err)
	assert.Len(t, added, 2)
	assert.True(t, st.Contains(semtest.TypeOf("kid", "Minor")))
	assert.True(t, st.Contains(semtest.TypeOf("mom", "Adult")))
}

func TestLoadDir_Errors(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	require.Len(t, errs, 1)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)

	_, errs = LoadDir(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

// ============================================================================
// Validate
// ============================================================================

func TestValidate_CollectsAll(t *testing.T) {
	r := infer.Rule{
		Conclusion: query.Pattern(query.T(rdf.NewString("s")), query.T(rdf.NewString("p")), query.V("z")),
		Condition:  infer.ExprCondition{Expr: query.VarExpr{Name: "w"}},
	}
	codes := map[string]bool{}
	for _, e := range Validate(r) {
		codes[e.Code] = true
	}
	for _, code := range []string{
		ErrRuleNameEmpty,
		ErrEmptyAntecedent,
		ErrInvalidConclusion,
		ErrUndefinedBoundVariable,
		ErrUnboundConditionVar,
	} {
		assert.True(t, codes[code], code)
	}
}

func TestValidate_ValidRule(t *testing.T) {
	res, errs := CompileSource("rules.cue", minorSource, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Empty(t, ValidateAll(res.Rules))
	for _, r := range res.Rules {
		assert.NoError(t, infer.CheckRule(r))
	}
}

func TestValidateAll_Duplicates(t *testing.T) {
	res, errs := CompileSource("rules.cue", minorSource, LoadModeFailFast)
	require.Empty(t, errs)

	errs2 := ValidateAll(append(res.Rules, res.Rules[0]))
	require.Len(t, errs2, 1)
	assert.Equal(t, ErrDuplicateRule, errs2[0].Code)
	assert.Equal(t, "minor", errs2[0].Rule)
	assert.Contains(t, errs2[0].Error(), "[E116]")
}
