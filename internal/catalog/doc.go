// Package catalog caches collection metadata in SQLite.
//
// Looking up a publication's title and year range walks the archive's
// paginated listing, which is slow against a rate-limited API. The catalog
// remembers the answer per collection id so info lookups and repeat fetch
// runs resolve display titles locally. Schema changes bump schemaVersion;
// stale databases are rejected and rebuilt by deletion, never migrated.
package catalog
