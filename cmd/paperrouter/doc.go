// Command paperrouter downloads newspaper collections from digital
// archives, resuming interrupted runs, and optionally extracts page text
// through tiered OCR under a resource-supervised harness.
package main
