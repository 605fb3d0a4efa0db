// Package audit implements the per-transaction audit trail: an append-only,
// strictly ordered sequence of write-once step records, one per state
// transition of the orchestrating auditor.
//
// A Trail belongs to exactly one transaction. Appends within a trail are
// serialized; ordering across transactions is unconstrained. The package
// also defines the step names and the expected trail shape per terminal
// state, which the KPI engine uses for its audit-completeness regression
// check.
package audit
