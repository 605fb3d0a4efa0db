// Mercator Saturn is a transaction compliance workflow engine.
//
// It processes financial transactions through a risk-scoring and
// policy-evaluation pipeline, providing:
//   - Deterministic risk assessment with configurable weights
//   - Policy evaluation grounded in a searchable policy corpus
//   - Adaptive exception rules learned from human corrections
//   - Complete per-transaction audit trails
//   - Learning-effectiveness KPIs per calendar day
//
// Usage:
//
//	# Process transactions from a file
//	saturn process --file transactions.json
//
//	# Start the engine with corpus watching and scheduled KPI recomputation
//	saturn run --config /path/to/config.yaml
//
//	# Show KPI snapshot for a day
//	saturn kpi --bucket 2026-08-29
//
//	# Validate configuration
//	saturn validate
//
//	# Show version information
//	saturn version
package main

func main() {
	Execute()
}
