// Package parser parses the SPARQL subset used by semgraph into query ASTs.
//
// Supported grammar:
//
//	Query    := Prologue SELECT ( Var+ | '*' ) WHERE '{' Body '}' EOF
//	Prologue := ( PREFIX PNAME_NS IRIREF )*
//	Body     := ( Triples | Filter | Optional )*
//	Triples  := Triple ( '.' Triple )* '.'?
//	Filter   := FILTER '(' Expr ')' '.'?
//	Optional := OPTIONAL '{' ( Triples | Filter )* '}' '.'?
//
// Expressions use the usual precedence: || binds loosest, then &&, then the
// relational operators, then + -, then * /, then unary ! and -.
//
// The parser is recursive descent with a single token of lookahead. The first
// malformed token aborts the parse with a *ParseError; there is no recovery.
//
// Prefixed names whose prefix is neither supplied nor declared do not fail
// the parse. They are kept as query.PrefixedName (or query.NameExpr inside
// expressions) so that execution can report the unresolved prefix.
package parser
