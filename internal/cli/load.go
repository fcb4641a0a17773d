package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/semgraph/internal/loader"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DB string
}

// LoadResult is the payload of a successful load.
type LoadResult struct {
	Files     int `json:"files"`
	Added     int `json:"added"`
	StoreSize int `json:"store_size"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <facts.yaml>...",
		Short: "Load YAML facts into a snapshot",
		Long: `Load YAML fact files into the snapshot database as asserted quads.

Facts already present are not duplicated; a derived quad that is loaded as
a fact becomes asserted. Prefixes declared by the files are saved with the
snapshot and are available to later queries.

Examples:
  semgraph load people.yaml --db graph.db
  semgraph load a.yaml b.yaml --db graph.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "snapshot database path (required)")

	return cmd
}

func runLoad(opts *LoadOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	// Parse every file before touching the database
	files := make([]*loader.File, 0, len(paths))
	for _, p := range paths {
		f, err := loader.ParseFile(p)
		if err != nil {
			_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
			return WrapExitError(ExitFailure, "failed to parse facts", err)
		}
		formatter.VerboseLog("Parsed %d fact(s) from %s", len(f.Quads), p)
		files = append(files, f)
	}

	sess, err := openSession(ctx, opts.DB)
	if err != nil {
		return err
	}
	defer sess.Close()

	added := 0
	for i, f := range files {
		n, err := loader.Load(sess.store, f)
		added += n
		if err != nil {
			var le *loader.LoadError
			msg := err.Error()
			if errors.As(err, &le) {
				msg = fmt.Sprintf("%s: %s", paths[i], le.Error())
			}
			_ = formatter.Error(ErrCodeLoad, msg, nil)
			return WrapExitError(ExitFailure, "failed to load facts", err)
		}
		if err := sess.db.SavePrefixes(ctx, f.Prefixes); err != nil {
			return WrapExitError(ExitCommandError, "failed to save prefixes", err)
		}
	}

	if err := sess.save(ctx); err != nil {
		return err
	}

	result := LoadResult{Files: len(files), Added: added, StoreSize: sess.store.Size()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Loaded %d new quad(s) from %d file(s); store has %d quad(s)\n",
		result.Added, result.Files, result.StoreSize)
	return nil
}
