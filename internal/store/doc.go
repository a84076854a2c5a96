// Package store provides the SQLite engine: training tables that fit can
// aggregate over, and durable storage for fitted transforms.
//
// # Tables
//
// Store.Table returns a table.Table over any table in the database. Its
// schema comes from the declared column types; Execute compiles the
// aggregate with querysql (SQLite dialect) and runs it as ONE statement.
//
// # Fitted Transforms
//
// Every saved transform is a Record keyed by (fit_token, step_name):
//   - transform: canonical JSON of the mapping (ir.MarshalCanonical)
//   - transform_id: content hash of the mapping
//   - seq: logical clock value from the fitting engine
//
// All ordering uses seq INTEGER (logical clock), NEVER timestamps.
// All list queries use ORDER BY seq ASC, step_name ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
