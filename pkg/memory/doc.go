// Package memory implements the adaptive memory store: persistence for
// learned exception rules and their usage statistics.
//
// Two backends are provided. MemoryStore keeps rules in process with
// per-rule write serialization and copy-on-read snapshot isolation, and is
// used by tests and dry runs. SQLiteStore persists rules durably and
// serializes concurrent usage updates per rule with an optimistic
// compare-and-swap on applied_count, retried a bounded number of times
// before surfacing a MemoryWriteConflictError.
//
// Lookup results are ordered by success rate descending, ties broken by the
// most recently applied rule, then by rule id so identical store states
// always produce identical orderings.
package memory
