// Package alarm contains the condition state-machine engine.
//
// An Alarm turns a periodically sampled trigger value into a condition with
// orthogonal sub-states: active, acknowledged/confirmed, suppressed, shelved
// and latched. Category behavior (classification, retain rules, trip edges)
// is selected from a closed dispatch table keyed by Category, so every
// category is handled in one place instead of through override chains.
//
// Alarm values are not safe for concurrent use. The owning component holds a
// single lock around every call, including the Sequence that issues event ids.
package alarm
