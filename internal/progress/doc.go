// Package progress persists resumable download state for one output
// directory.
//
// The Record tracks completed issues, failed issues, failed pages, and
// partial per-page progress; every entry carries enough identity fields to
// rebuild a page without touching the network. Saves are atomic (temp file
// plus rename) with a best-effort backup of the previous record, so a
// crash mid-save never corrupts the resume anchor.
//
// A Session couples the record with an advisory file lock so two runs
// cannot interleave writes against the same output directory.
package progress
