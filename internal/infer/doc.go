// Package infer implements forward-chaining rule inference over a store.
//
// An Engine holds an ordered list of rules. Infer applies every rule, in
// registration order, to the current store and adds the substituted
// conclusions as derived quads. Passes repeat until one adds nothing (the
// fixpoint) or the pass cap is reached, in which case Infer returns an
// *InferenceDivergedError and the quads already added stay in the store.
//
// Rule conditions are either typed expression trees (ExprCondition) or
// opaque pure functions (ConditionFunc). Conditions are never parsed from
// text at inference time.
//
// Blank nodes in a rule's conclusion are templates: every firing mints
// fresh blank nodes through the engine's BlankNodeGenerator. Every pass
// re-fires such a rule with new nodes, so it ends in an
// *InferenceDivergedError. An Engine holds no state tied to a store and may
// be run against any number of stores.
//
// The engine performs no locking. Infer mutates the store and must be
// externally serialized with every other writer.
package infer
