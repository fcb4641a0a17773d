package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/semgraph/internal/exec"
	"github.com/roach88/semgraph/internal/infer"
	"github.com/roach88/semgraph/internal/loader"
	"github.com/roach88/semgraph/internal/parser"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/rules"
	"github.com/roach88/semgraph/internal/store"
	"github.com/roach88/semgraph/internal/testutil"
)

// Harness is the scenario execution engine for a single run.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	engine   *infer.Engine
	executor *exec.Executor
	blanks   *testutil.SequenceBlankGenerator
	prefixes map[string]string
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger for step progress. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store and engine.
//
// Execution flow:
//  1. Load facts as asserted quads
//  2. Compile, validate and register rules
//  3. Execute steps and check their expectations
//  4. Evaluate assertions
//
// Setup failures (bad facts, bad rules) return an error. Failed
// expectations and assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		store:    store.New(),
		blanks:   testutil.NewSequenceBlankGenerator("g"),
		prefixes: rdf.StandardPrefixes(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	for k, v := range scenario.Prefixes {
		h.prefixes[k] = v
	}

	h.engine = infer.New(
		infer.WithBlankNodes(h.blanks),
		infer.WithMaxPasses(scenario.MaxPasses),
		infer.WithLogger(h.logger),
	)
	h.executor = exec.NewExecutor(exec.WithLogger(h.logger))

	if err := h.loadFacts(); err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	if err := h.loadRules(); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if step.Infer {
			h.executeInfer(i, step, result)
		} else {
			h.executeQuery(i, step, result)
		}
	}

	actx := &AssertionContext{Store: h.store, Prefixes: scenario.Prefixes}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	result.StoreSize = h.store.Size()
	result.Derived = h.store.Count(rdf.Derived)

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"errors", len(result.Errors),
		"store_size", result.StoreSize)
	return result, nil
}

func (h *Harness) loadFacts() error {
	if len(h.scenario.Facts) == 0 {
		return nil
	}
	f, err := loader.Compile(h.scenario.Prefixes, "", h.scenario.Facts)
	if err != nil {
		return err
	}
	n, err := loader.Load(h.store, f)
	if err != nil {
		return err
	}
	h.logger.Debug("facts loaded", "count", n)
	return nil
}

// loadRules compiles the inline CUE with the scenario prefixes unified into
// its prefix struct.
func (h *Harness) loadRules() error {
	if strings.TrimSpace(h.scenario.Rules) == "" {
		return nil
	}

	src := cuePrefixes(h.scenario.Prefixes) + h.scenario.Rules
	res, errs := rules.CompileSource(h.scenario.Name+".cue", src, rules.LoadModeCollectAll)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if problems := rules.ValidateAll(res.Rules); len(problems) > 0 {
		errs := make([]error, len(problems))
		for i, p := range problems {
			errs[i] = p
		}
		return errors.Join(errs...)
	}

	for _, r := range res.Rules {
		if err := h.engine.AddRule(r); err != nil {
			return err
		}
	}
	h.logger.Debug("rules registered", "count", len(res.Rules))
	return nil
}

// cueIdent matches prefix names usable as bare CUE labels. Names starting
// with _ or # would declare hidden fields or definitions.
var cueIdent = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var cueKeywords = map[string]bool{
	"package": true, "import": true, "for": true, "in": true, "if": true,
	"let": true, "true": true, "false": true, "null": true,
}

func cuePrefixes(prefixes map[string]string) string {
	if len(prefixes) == 0 {
		return ""
	}
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("prefix: {\n")
	for _, name := range names {
		label := name
		if !cueIdent.MatchString(name) || cueKeywords[name] {
			label = strconv.Quote(name)
		}
		fmt.Fprintf(&b, "\t%s: %s\n", label, strconv.Quote(prefixes[name]))
	}
	b.WriteString("}\n")
	return b.String()
}

func (h *Harness) executeInfer(i int, step Step, result *Result) {
	ev := TraceEvent{Step: i, Kind: StepInfer}

	added, err := h.engine.Infer(h.store)
	for _, q := range added {
		ev.Added = append(ev.Added, h.formatQuad(q))
	}
	if err != nil {
		ev.Error = "error"
		if infer.IsDivergedError(err) {
			ev.Error = ErrorDiverged
		}
		ev.ErrorMessage = err.Error()
	}
	result.Trace = append(result.Trace, ev)

	h.checkError(i, step, ev, result)
	if step.ExpectAdded != nil && len(added) != *step.ExpectAdded {
		result.AddError(fmt.Sprintf("steps[%d]: expected %d added quads, got %d", i, *step.ExpectAdded, len(added)))
	}

	h.logger.Info("infer step completed", "step", i, "added", len(added), "error", ev.Error)
}

func (h *Harness) executeQuery(i int, step Step, result *Result) {
	ev := TraceEvent{Step: i, Kind: StepQuery, Query: step.Query}

	var solutions []query.Binding
	q, err := parser.ParseQuery(step.Query, h.prefixes)
	if err != nil {
		ev.Error = ErrorParse
		ev.ErrorMessage = err.Error()
	} else if solutions, err = h.executor.Execute(q, h.store); err != nil {
		ev.Error = "error"
		var qe *exec.QueryExecutionError
		if errors.As(err, &qe) {
			ev.Error = string(qe.Code)
		}
		ev.ErrorMessage = err.Error()
	}

	for _, b := range solutions {
		ev.Rows = append(ev.Rows, h.formatBinding(b))
	}
	result.Trace = append(result.Trace, ev)

	h.checkError(i, step, ev, result)
	if step.ExpectCount != nil && len(solutions) != *step.ExpectCount {
		result.AddError(fmt.Sprintf("steps[%d]: expected %d solutions, got %d", i, *step.ExpectCount, len(solutions)))
	}
	if step.ExpectRows != nil {
		if err := h.checkRows(step.ExpectRows, solutions); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		}
	}

	h.logger.Info("query step completed", "step", i, "solutions", len(solutions), "error", ev.Error)
}

func (h *Harness) checkError(i int, step Step, ev TraceEvent, result *Result) {
	switch {
	case step.ExpectError != "" && ev.Error != step.ExpectError:
		got := ev.Error
		if got == "" {
			got = "none"
		}
		result.AddError(fmt.Sprintf("steps[%d]: expected error %q, got %s", i, step.ExpectError, got))
	case step.ExpectError == "" && ev.Error != "":
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %s", i, ev.ErrorMessage))
	}
}

// checkRows compares solutions with expected rows as bags.
func (h *Harness) checkRows(expected []map[string]string, solutions []query.Binding) error {
	want := make(map[string]int, len(expected))
	rows := make(map[string]query.Binding)
	for j, row := range expected {
		b := query.Binding{}
		for name, text := range row {
			t, err := h.parseTerm(text)
			if err != nil {
				return fmt.Errorf("expect_rows[%d].%s: %w", j, name, err)
			}
			b[name] = t
		}
		want[b.Key()]++
		rows[b.Key()] = b
	}

	got := make(map[string]int, len(solutions))
	for _, b := range solutions {
		got[b.Key()]++
		rows[b.Key()] = b
	}

	for k, n := range want {
		if got[k] != n {
			return fmt.Errorf("expected row {%s} %d time(s), found %d", rows[k], n, got[k])
		}
	}
	for k, n := range got {
		if _, ok := want[k]; !ok {
			return fmt.Errorf("unexpected row {%s} (%d time(s))", rows[k], n)
		}
	}
	return nil
}

func (h *Harness) parseTerm(text string) (rdf.Term, error) {
	n, err := parser.ParseTerm(text, h.prefixes)
	if err != nil {
		return nil, err
	}
	t, ok := query.TermOf(n)
	if !ok {
		return nil, fmt.Errorf("%s is not a concrete term", n)
	}
	return t, nil
}

func (h *Harness) formatBinding(b query.Binding) map[string]string {
	row := make(map[string]string, len(b))
	for name, t := range b {
		row[name] = h.formatTerm(t)
	}
	return row
}

func (h *Harness) formatQuad(q rdf.Quad) string {
	parts := []string{h.formatTerm(q.Subject), h.formatTerm(q.Predicate), h.formatTerm(q.Object)}
	if q.Graph != "" {
		parts = append(parts, h.formatTerm(q.Graph))
	}
	return strings.Join(parts, " ")
}

// formatTerm renders IRIs as prefixed names where a declared namespace
// covers them. The longest namespace wins.
func (h *Harness) formatTerm(t rdf.Term) string {
	iri, ok := t.(rdf.IRI)
	if !ok {
		return t.String()
	}

	best, bestNS := "", ""
	for name, ns := range h.prefixes {
		if ns == "" || !strings.HasPrefix(string(iri), ns) || !isLocalName(string(iri)[len(ns):]) {
			continue
		}
		if len(ns) > len(bestNS) || (len(ns) == len(bestNS) && name < best) {
			best, bestNS = name, ns
		}
	}
	if bestNS == "" {
		return iri.String()
	}
	return best + ":" + string(iri)[len(bestNS):]
}

func isLocalName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		case (r == '-' || r == '.') && i > 0:
		default:
			return false
		}
	}
	return !strings.HasSuffix(s, ".")
}
