package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/semgraph/internal/rdf"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	DB string
}

// StatsResult summarizes a snapshot.
type StatsResult struct {
	Quads    int      `json:"quads"`
	Asserted int      `json:"asserted"`
	Derived  int      `json:"derived"`
	Graphs   []string `json:"graphs"`
	Terms    int      `json:"terms"`
	Prefixes []string `json:"prefixes"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Summarize a snapshot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "snapshot database path (required)")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx := cmd.Context()
	sess, err := openSession(ctx, opts.DB)
	if err != nil {
		return err
	}
	defer sess.Close()

	persisted, err := sess.db.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count quads", err)
	}

	st := sess.store
	result := StatsResult{
		Quads:    persisted,
		Asserted: st.Count(rdf.Asserted),
		Derived:  st.Count(rdf.Derived),
		Graphs:   make([]string, 0),
		Terms:    st.Terms(),
		Prefixes: make([]string, 0, len(sess.prefixes)),
	}
	for _, g := range st.Graphs() {
		if g == "" {
			result.Graphs = append(result.Graphs, "(default)")
			continue
		}
		result.Graphs = append(result.Graphs, string(g))
	}
	for name := range sess.prefixes {
		result.Prefixes = append(result.Prefixes, name)
	}
	sort.Strings(result.Prefixes)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "quads:    %d (%d asserted, %d derived)\n", result.Quads, result.Asserted, result.Derived)
	fmt.Fprintf(w, "terms:    %d\n", result.Terms)
	fmt.Fprintf(w, "graphs:   %d\n", len(result.Graphs))
	for _, g := range result.Graphs {
		fmt.Fprintf(w, "  %s\n", g)
	}
	fmt.Fprintf(w, "prefixes: %d\n", len(result.Prefixes))
	return nil
}
