package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/semgraph/internal/rules"
)

// ValidationIssue is one problem found in a rules directory.
type ValidationIssue struct {
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Rules  int               `json:"rules"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Validate rule files without running them",
		Long: `Compile the CUE rule files in a directory and check every rule.

Reports all problems at once: malformed patterns, undeclared prefixes,
conclusion variables not bound by when, where conditions over unbound
variables and duplicate names.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, loadErrors := rules.LoadDir(rulesDir, rules.LoadModeCollectAll)

	// Directory not found, no files, CUE syntax errors
	if loaded == nil {
		code := loadErrorCode(loadErrors[0])
		return outputValidateError(formatter, code, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, rulesDir)

	var issues []ValidationIssue
	for _, err := range loadErrors {
		issues = append(issues, issueFromLoadError(err))
	}
	for _, ve := range rules.ValidateAll(loaded.Rules) {
		formatter.VerboseLog("Rule %s: %s", ve.Rule, ve.Message)
		issues = append(issues, ValidationIssue{
			Rule:    ve.Rule,
			Field:   ve.Field,
			Code:    ve.Code,
			Message: ve.Message,
		})
	}

	result := ValidationResult{
		Valid:  len(issues) == 0,
		Rules:  len(loaded.Rules),
		Files:  loaded.FileCount,
		Errors: issues,
	}
	if len(issues) > 0 {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func issueFromLoadError(err error) ValidationIssue {
	var le *rules.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: rules.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Rule: le.Rule, Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
	}
	return issue
}

// loadExitCode maps a rule load error code to an exit code. Missing or
// unreadable directories are command errors; everything else is a rule
// failure.
func loadExitCode(code string) int {
	switch code {
	case rules.ErrCodeNotFound, rules.ErrCodeScanError, rules.ErrCodeNoFiles:
		return ExitCommandError
	default:
		return ExitFailure
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d rule(s) valid in %d file(s)\n", result.Rules, result.Files)
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(loadExitCode(code), message)
}

// outputValidationErrors reports every issue and fails with ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	issues := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.Format == "json" {
		if err := formatter.respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
		}
		if issue.Rule != "" {
			fmt.Fprintf(w, "  rule %s\n", issue.Rule)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
