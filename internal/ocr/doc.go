// Package ocr turns downloaded page artifacts into per-page text files.
//
// Two tiers exist: a fast tier that fetches the archive's pre-existing
// text through the page's source, and a slow tier that runs local model
// inference on the page PDF. Each tier's output file doubles as its
// completion marker, so extraction is idempotent per page and tier.
package ocr
