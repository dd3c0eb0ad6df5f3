// Package loc implements the source contract for the Library of Congress
// Chronicling America collection.
//
// Issue discovery walks the paginated collection API with the year range
// pushed into the dates= facet. Page artifacts and fulltext links are
// resolved lazily from each page's fo=json body because the archive splits
// them across item and resource record shapes. Downloads stream to a
// temporary file and are validated as PDFs before the rename into place.
//
// The archive publishes hard rate limits (20 requests per minute burst);
// every paginated walk waits on the shared limiter between requests.
package loc
