// Package store persists the transaction ledger: decided transactions with
// their full audit trails, feedback records, and KPI snapshots.
//
// The SQLite backend keeps all three tables in one database file so a
// transaction and its audit trail commit atomically. An in-memory backend
// backs tests and dry runs.
package store
