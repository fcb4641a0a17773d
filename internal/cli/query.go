package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/semgraph/internal/exec"
	"github.com/roach88/semgraph/internal/parser"
	"github.com/roach88/semgraph/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	DB       string
	Prefixes []string // name=iri
}

// QueryResult is the payload of a successful query.
type QueryResult struct {
	Variables []string            `json:"variables"`
	Rows      []map[string]string `json:"rows"`
	Count     int                 `json:"count"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Run a query against a snapshot",
		Long: `Run a SELECT query against the quads of a snapshot database.

Prefixes resolve from the standard set (rdf, rdfs, xsd, owl), the prefixes
saved by load, and --prefix flags, in that order of precedence.

Examples:
  semgraph query 'SELECT ?s WHERE { ?s a ex:Person }' --db graph.db
  semgraph query 'SELECT * WHERE { ?s foaf:name ?n }' --db graph.db --prefix foaf=http://xmlns.com/foaf/0.1/`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "snapshot database path (required)")
	cmd.Flags().StringArrayVar(&opts.Prefixes, "prefix", nil, "declare a prefix (name=iri, repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	extra, err := parsePrefixFlags(opts.Prefixes)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := openDB(ctx, opts.DB)
	if err != nil {
		return err
	}
	defer sess.Close()

	for k, v := range extra {
		sess.prefixes[k] = v
	}

	q, err := parser.ParseQuery(text, sess.prefixes)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeParse, err.Error(), nil)
	}

	solutions, err := executeQuery(ctx, formatter, sess, q)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		code := ErrCodeQuery
		var qe *exec.QueryExecutionError
		if errors.As(err, &qe) {
			code = string(qe.Code)
		}
		return formatter.Fail(ExitFailure, code, err.Error(), nil)
	}

	result := buildQueryResult(q.Projected(), solutions)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return writeTable(formatter.Writer, result)
}

// executeQuery answers a query with one required pattern and no OPTIONAL
// groups straight from the snapshot through SQL. Other queries, and patterns
// the SQL compiler rejects, run against the loaded store.
func executeQuery(ctx context.Context, formatter *OutputFormatter, sess *session, q *query.Query) ([]query.Binding, error) {
	executor := exec.NewExecutor(exec.WithLogger(formatter.Logger()))

	if len(q.Patterns) == 1 && len(q.Optional) == 0 {
		src := sess.db.Source(ctx)
		solutions, err := executor.Execute(q, src)
		if err != nil || src.Err() == nil {
			return solutions, err
		}
		formatter.VerboseLog("snapshot select failed, loading store: %v", src.Err())
	}

	if err := sess.loadStore(ctx); err != nil {
		return nil, err
	}
	return executor.Execute(q, sess.store)
}

func buildQueryResult(vars []string, solutions []query.Binding) QueryResult {
	result := QueryResult{
		Variables: vars,
		Rows:      make([]map[string]string, 0, len(solutions)),
		Count:     len(solutions),
	}
	for _, b := range solutions {
		row := make(map[string]string, len(b))
		for name, t := range b {
			row[name] = t.String()
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

// writeTable prints one column per variable. Unbound values are blank.
func writeTable(w io.Writer, result QueryResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, v := range result.Variables {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, "?"+v)
	}
	fmt.Fprintln(tw)
	for _, row := range result.Rows {
		for i, v := range result.Variables {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, row[v])
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d solution(s)\n", result.Count)
	return nil
}
