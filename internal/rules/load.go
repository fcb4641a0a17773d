package rules

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/semgraph/internal/infer"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the rules compiled from a directory or source.
type LoadResult struct {
	Rules     []infer.Rule
	Prefixes  map[string]string
	FileCount int
}

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Rule    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("rule %q: %s", e.Rule, e.Message)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoRules     = "E007" // no rules declared
	ErrCodeWhen        = "E101" // invalid when
	ErrCodeWhere       = "E102" // invalid where
	ErrCodeThen        = "E103" // invalid then
	ErrCodePrefix      = "E104" // invalid prefix declaration
)

// LoadDir loads every .cue file in dir as one CUE instance and compiles
// its rules.
//
// If mode is LoadModeFailFast, returns on the first error.
// If mode is LoadModeCollectAll, compiles every rule and returns all errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result, errs := compileValue(value, mode)
	if result != nil {
		result.FileCount = len(files)
	}
	return result, errs
}

// CompileSource compiles rules from CUE source text. filename is used in
// error positions only.
func CompileSource(filename, src string, mode LoadMode) (*LoadResult, []error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, []error{convertCompileError(formatCUEError(err), "", ErrCodeBuildFailed)}
	}
	result, errs := compileValue(value, mode)
	if result != nil {
		result.FileCount = 1
	}
	return result, errs
}

func compileValue(value cue.Value, mode LoadMode) (*LoadResult, []error) {
	prefixes, err := compilePrefixes(value)
	if err != nil {
		return nil, []error{convertCompileError(err, "", ErrCodePrefix)}
	}

	result := &LoadResult{Prefixes: prefixes, Rules: []infer.Rule{}}
	var errs []error

	rulesVal := value.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoRules, Message: "no rules declared"}}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating rules: %v", err)}}
	}
	for iter.Next() {
		rule, err := CompileRule(iter.Value(), prefixes)
		if err != nil {
			errs = append(errs, convertCompileError(err, iter.Label(), ""))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Rules = append(result.Rules, *rule)
	}

	if len(result.Rules) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoRules, Message: "no rules declared"})
	}
	return result, errs
}

// FindCUEFiles returns the .cue files directly under dir, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// convertCompileError converts a compile error to a LoadError with
// position info. An empty code is derived from the failing field.
func convertCompileError(err error, rule, code string) *LoadError {
	var ce *CompileError
	if stderrors.As(err, &ce) {
		if code == "" {
			code = MapFieldToErrorCode(ce.Field)
		}
		return &LoadError{Code: code, Rule: rule, Message: ce.Message, Pos: ce.Pos}
	}
	if code == "" {
		code = ErrCodeGeneric
	}
	return &LoadError{Code: code, Rule: rule, Message: err.Error()}
}

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "when" || strings.HasPrefix(field, "when["):
		return ErrCodeWhen
	case field == "where":
		return ErrCodeWhere
	case field == "then":
		return ErrCodeThen
	case strings.HasPrefix(field, "prefix."):
		return ErrCodePrefix
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
