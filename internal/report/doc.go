// Package report streams machine-readable run progress as JSON lines.
//
// Presentation layers observe a run by parsing these lines from the
// worker's stdout instead of linking against orchestrator internals. Every
// event carries the run's UUID so interleaved logs from sequential runs
// stay attributable.
package report
