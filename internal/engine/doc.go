// Package engine fits batches of named steps against one training table.
//
// A batch is not a pipeline: every step sees the same input table and no
// step's output feeds another. The engine adds what the step package leaves
// out:
//
//   - a fit token per batch (UUIDv7 by default) correlating log lines and
//     stored records
//   - a monotonic logical clock stamping each fitted transform with a seq
//   - structured logging via log/slog
//   - optional persistence of every fitted transform
//
// FitAll is all-or-nothing. Every step is fitted before anything is
// persisted, and the first failing step aborts the batch. The Recorder then
// saves the whole batch in one transaction.
//
// Seq numbers come from Clock.Next() and NEVER from wall-clock time.
// Resume restarts the clock at the store's highest seq so records stay
// ordered across runs.
package engine
