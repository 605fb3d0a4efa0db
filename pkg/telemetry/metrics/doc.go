// Package metrics provides Prometheus instrumentation for the Saturn
// compliance pipeline.
//
// The Collector owns a private registry and groups metrics by subsystem:
// pipeline decisions, oracle calls, adaptive memory operations, and KPI
// snapshots. A nil *Collector is safe to use; all recording methods become
// no-ops, so components can take an optional collector without nil checks
// at every call site.
package metrics
