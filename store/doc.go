// Package store holds page repositories for the batch scanner.
//
// [Memory] keeps pages in process and is used by tests and the single-page
// CLI commands. [Postgres] stores pages in a "pages" table through
// database/sql and the pgx driver; detections and merged objects are kept as
// JSONB. Both select unmerged pages with keyset pagination on the page ID
// and commit a page's objects and merged flag in one statement, so a failed
// commit leaves the page unmerged and eligible for the next scan.
package store
