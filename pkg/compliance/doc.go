// Package compliance defines the shared domain model for the Saturn
// transaction compliance engine: transactions and their invoice payloads,
// risk levels, compliance verdicts, final decisions, audit steps, learned
// exception rules, feedback records, and the error taxonomy shared by all
// pipeline components.
//
// The types in this package are plain data; behavior lives in the component
// packages (risk, policy, engine, feedback, memory, kpi).
package compliance
