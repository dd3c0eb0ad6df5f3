// Package downloader turns a "fetch this collection" request into a
// sequence of idempotent, rate-limited operations with durable progress.
//
// The orchestrator is strictly sequential: one network operation in
// flight, one OCR invocation at a time. Skip decisions key off identity
// (issue date+edition, page index), never position, so a re-resolved issue
// list with new insertions resumes correctly. Progress persists after
// every issue; a crash loses at most one issue's work.
//
// Page and issue failures are recorded and the loop continues. Only two
// conditions abort a run: the issue list itself cannot be resolved, or the
// progress record cannot be written.
package downloader
