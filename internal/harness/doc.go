// Package harness runs YAML scenarios against a fresh store and inference
// engine.
//
// A scenario loads facts, compiles inline CUE rules, executes a sequence of
// infer and query steps and finally checks assertions over the store and the
// step trace:
//
//	name: minor_rule
//	description: ages below 18 derive ex:Minor
//	prefixes: { ex: "http://example.org/" }
//	facts:
//	  - [ex:alice, ex:hasAge, 17]
//	rules: |
//	  rule: minor: {
//	      when:  "?p ex:hasAge ?age"
//	      where: "?age < 18"
//	      then:  "?p a ex:Minor"
//	  }
//	steps:
//	  - infer: true
//	    expect_added: 1
//	  - query: "SELECT ?p WHERE { ?p a ex:Minor }"
//	    expect_rows: [{ p: ex:alice }]
//	assertions:
//	  - type: contains
//	    quad: [ex:alice, a, ex:Minor]
//
// Scenario prefixes are visible to facts, rules, queries and assertions.
// Blank nodes minted by rules are numbered g1, g2, ... so that traces are
// reproducible and can be compared against golden files.
package harness
