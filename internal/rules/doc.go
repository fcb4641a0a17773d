// Package rules compiles CUE rule files into inference rules.
//
// A rule file declares prefixes and named rules:
//
//	prefix: ex: "http://example.org/"
//
//	rule: minor: {
//		when:  ["?p ex:hasAge ?age"]
//		where: "?age < 18"
//		then:  "?p a ex:Minor"
//	}
//
// when holds one or more triple patterns (a list of strings or a single
// string of "."-separated patterns), where is an optional filter
// expression and then is exactly one conclusion pattern. Pattern and
// expression text use the query parser's syntax. The rdf, rdfs, xsd and
// owl prefixes are always declared.
//
// Rules are returned in CUE field order, which becomes their evaluation
// order once registered with an infer.Engine.
package rules
