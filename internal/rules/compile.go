package rules

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/semgraph/internal/infer"
	"github.com/roach88/semgraph/internal/parser"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// CompileError reports a rule that cannot be compiled, with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileRule parses a CUE rule struct into an infer.Rule.
//
// The rule name is the last path selector of v, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rule: minor: { ... }`)
//	r, err := CompileRule(v.LookupPath(cue.ParsePath("rule.minor")), prefixes)
//
// The returned rule is not checked beyond what parsing requires; see
// Validate and infer.Engine.AddRule.
func CompileRule(v cue.Value, prefixes map[string]string) (*infer.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rule := &infer.Rule{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		rule.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	rule.Antecedent, err = parseWhen(v, prefixes)
	if err != nil {
		return nil, err
	}

	whereVal := v.LookupPath(cue.ParsePath("where"))
	if whereVal.Exists() {
		cond, err := parseWhere(whereVal, prefixes)
		if err != nil {
			return nil, err
		}
		rule.Condition = cond
	}

	rule.Conclusion, err = parseThen(v, prefixes)
	if err != nil {
		return nil, err
	}

	return rule, nil
}

// parseWhen extracts the antecedent patterns.
func parseWhen(v cue.Value, prefixes map[string]string) ([]query.TriplePattern, error) {
	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return nil, &CompileError{
			Field:   "when",
			Message: "when is required",
			Pos:     v.Pos(),
		}
	}

	if whenVal.Kind() == cue.StringKind {
		text, _ := whenVal.String()
		return compilePatterns("when", text, whenVal, prefixes)
	}

	iter, err := whenVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "when",
			Message: "when must be a string or a list of strings",
			Pos:     whenVal.Pos(),
		}
	}

	var out []query.TriplePattern
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("when[%d]", i)
		text, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "pattern must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		tps, err := compilePatterns(field, text, iter.Value(), prefixes)
		if err != nil {
			return nil, err
		}
		out = append(out, tps...)
	}
	return out, nil
}

// parseWhere extracts the condition expression.
func parseWhere(v cue.Value, prefixes map[string]string) (infer.Condition, error) {
	text, err := v.String()
	if err != nil {
		return nil, &CompileError{
			Field:   "where",
			Message: "where must be a string expression",
			Pos:     v.Pos(),
		}
	}
	expr, err := parser.ParseExpr(text, prefixes)
	if err != nil {
		return nil, &CompileError{Field: "where", Message: err.Error(), Pos: v.Pos()}
	}
	return infer.ExprCondition{Expr: expr}, nil
}

// parseThen extracts the single conclusion pattern.
func parseThen(v cue.Value, prefixes map[string]string) (query.TriplePattern, error) {
	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return query.TriplePattern{}, &CompileError{
			Field:   "then",
			Message: "then is required",
			Pos:     v.Pos(),
		}
	}
	text, err := thenVal.String()
	if err != nil {
		return query.TriplePattern{}, &CompileError{
			Field:   "then",
			Message: "then must be a string pattern",
			Pos:     thenVal.Pos(),
		}
	}
	tps, err := compilePatterns("then", text, thenVal, prefixes)
	if err != nil {
		return query.TriplePattern{}, err
	}
	if len(tps) != 1 {
		return query.TriplePattern{}, &CompileError{
			Field:   "then",
			Message: fmt.Sprintf("then must hold exactly one pattern, found %d", len(tps)),
			Pos:     thenVal.Pos(),
		}
	}
	return tps[0], nil
}

func compilePatterns(field, text string, v cue.Value, prefixes map[string]string) ([]query.TriplePattern, error) {
	tps, err := parser.ParsePatterns(text, prefixes)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return tps, nil
}

// compilePrefixes reads the top-level prefix struct over the standard prefixes.
func compilePrefixes(root cue.Value) (map[string]string, error) {
	prefixes := rdf.StandardPrefixes()

	prefixVal := root.LookupPath(cue.ParsePath("prefix"))
	if !prefixVal.Exists() {
		return prefixes, nil
	}
	iter, err := prefixVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := strings.Trim(iter.Label(), `"`)
		ns, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "prefix." + name,
				Message: "prefix namespace must be a string IRI",
				Pos:     iter.Value().Pos(),
			}
		}
		prefixes[name] = ns
	}
	return prefixes, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
