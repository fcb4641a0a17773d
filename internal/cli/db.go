package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/semgraph/internal/rdf"
	"github.com/roach88/semgraph/internal/snapshot"
	"github.com/roach88/semgraph/internal/store"
)

// Error codes shared by the store-backed commands.
const (
	ErrCodeParse      = "E_PARSE"
	ErrCodeQuery      = "E_QUERY"
	ErrCodeLoad       = "E_LOAD"
	ErrCodeDiverged   = "E_DIVERGED"
	ErrCodeRules      = "E_RULES"
	ErrCodeTestFailed = "E_TEST_FAILED"
)

// session is a snapshot database together with the store loaded from it.
// store is nil until loadStore runs.
type session struct {
	db       *snapshot.DB
	store    *store.Store
	prefixes map[string]string
}

// openSession opens the snapshot at path and loads every quad into a fresh
// store. Errors are command errors.
func openSession(ctx context.Context, path string) (*session, error) {
	sess, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := sess.loadStore(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// openDB opens the snapshot at path and reads its prefixes, merged over
// the standard ones. No quads are loaded.
func openDB(ctx context.Context, path string) (*session, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	db, err := snapshot.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	declared, err := db.Prefixes(ctx)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read prefixes", err)
	}

	prefixes := rdf.StandardPrefixes()
	for k, v := range declared {
		prefixes[k] = v
	}
	return &session{db: db, prefixes: prefixes}, nil
}

// loadStore loads every persisted quad into a fresh store.
func (s *session) loadStore(ctx context.Context) error {
	st := store.New()
	if _, err := s.db.Load(ctx, st); err != nil {
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}
	s.store = st
	return nil
}

// save writes the store back as the new snapshot.
func (s *session) save(ctx context.Context) error {
	if err := s.db.Save(ctx, s.store); err != nil {
		return WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}
	return nil
}

func (s *session) Close() error {
	return s.db.Close()
}

// parsePrefixFlags parses repeated "name=iri" flags.
func parsePrefixFlags(flags []string) (map[string]string, error) {
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		name, iri, ok := strings.Cut(f, "=")
		if !ok || iri == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --prefix %q: want name=iri", f))
		}
		out[name] = iri
	}
	return out, nil
}
