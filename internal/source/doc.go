// Package source defines the contract between the download orchestrator
// and a newspaper archive.
//
// A Source turns a collection identifier into issues, issues into pages,
// and pages into downloaded artifacts or archive-provided text. Concrete
// archives register a Factory by name; the orchestrator depends only on
// the Source interface, never on an archive's API shape.
//
// Failures are tagged with ErrTransient or ErrPermanent so callers can
// decide between retry-with-backoff and record-and-continue without
// inspecting archive-specific error text.
package source
