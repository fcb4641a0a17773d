package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/semgraph/internal/infer"
	"github.com/roach88/semgraph/internal/metrics"
	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/rules"
)

// InferOptions holds flags for the infer command.
type InferOptions struct {
	*RootOptions
	DB        string
	MaxPasses int
	Metrics   bool // dump collectors to stderr after the run
}

// InferResult is the payload of an inference run.
type InferResult struct {
	Rules     int      `json:"rules"`
	Passes    int      `json:"passes"`
	Added     []string `json:"added"`
	StoreSize int      `json:"store_size"`
	Derived   int      `json:"derived"`
}

// NewInferCommand creates the infer command.
func NewInferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "infer <rules-dir>",
		Short: "Run rules to a fixpoint over a snapshot",
		Long: `Compile the CUE rules in a directory and apply them to the snapshot
until no rule adds a quad. Derived quads are saved with the snapshot.

If the pass cap is reached the quads added so far are still saved and the
command exits with code 1.

Examples:
  semgraph infer ./rules --db graph.db
  semgraph infer ./rules --db graph.db --max-passes 50 --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "snapshot database path (required)")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", infer.DefaultMaxPasses, "pass cap for the run")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print inference metrics to stderr")

	return cmd
}

func runInfer(opts *InferOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	loaded, loadErrs := rules.LoadDir(rulesDir, rules.LoadModeFailFast)
	if len(loadErrs) > 0 {
		code := loadErrorCode(loadErrs[0])
		return formatter.Fail(loadExitCode(code), code, loadErrs[0].Error(), nil)
	}
	if issues := rules.ValidateAll(loaded.Rules); len(issues) > 0 {
		return formatter.Fail(ExitFailure, issues[0].Code, issues[0].Error(), nil)
	}

	sess, err := openSession(ctx, opts.DB)
	if err != nil {
		return err
	}
	defer sess.Close()

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
	}
	engine := infer.New(
		infer.WithMaxPasses(opts.MaxPasses),
		infer.WithLogger(formatter.Logger()),
		infer.WithMetrics(metrics.New(reg)),
	)
	for _, r := range loaded.Rules {
		if err := engine.AddRule(r); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeRules, err.Error(), nil)
		}
	}
	formatter.VerboseLog("Registered %d rule(s) from %s", engine.RuleCount(), rulesDir)

	added, inferErr := engine.Infer(sess.store)
	if inferErr != nil && !infer.IsDivergedError(inferErr) {
		return formatter.Fail(ExitFailure, ErrCodeRules, inferErr.Error(), nil)
	}

	// Diverged runs keep their partial result
	if err := sess.save(ctx); err != nil {
		return err
	}

	if reg != nil {
		if err := writeMetrics(formatter.GetErrWriter(), reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	stats := engine.Stats(sess.store)
	result := InferResult{
		Rules:     stats.Rules,
		Passes:    stats.LastPasses,
		Added:     make([]string, 0, len(added)),
		StoreSize: stats.StoreSize,
		Derived:   sess.store.Count(rdf.Derived),
	}
	for _, q := range added {
		result.Added = append(result.Added, q.String())
	}

	if formatter.Format != "json" {
		w := formatter.Writer
		for _, q := range result.Added {
			fmt.Fprintf(w, "+ %s\n", q)
		}
		fmt.Fprintf(w, "Derived %d quad(s) in %d pass(es); store has %d quad(s)\n",
			len(result.Added), result.Passes, result.StoreSize)
	}
	if inferErr != nil {
		return formatter.Fail(ExitFailure, ErrCodeDiverged, inferErr.Error(), result)
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return nil
}

// writeMetrics prints every gathered family in the text exposition format.
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func loadErrorCode(err error) string {
	var le *rules.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return rules.ErrCodeGeneric
}
