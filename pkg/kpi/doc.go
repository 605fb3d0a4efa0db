// Package kpi computes learning-effectiveness indicators over the
// transaction ledger: human correction rate, context retention score,
// automated approval rate, and audit trail completeness. Indicators are
// aggregated per UTC calendar day; recomputing a bucket overwrites its
// snapshot rather than appending a new one.
package kpi
