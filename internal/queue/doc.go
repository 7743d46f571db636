// Package queue stores named FIFO work queues as rows of a single relational
// table and implements the claim protocol consumers use to take work.
//
// Producers call Enqueue. Consumers call ClaimAndFetch, which stamps the
// oldest unclaimed row of a queue with a fresh claim token in one conditional
// UPDATE; the number of affected rows decides whether the caller won. The
// winner re-reads the row by its token, then applies the retention policy:
// "mark" sets processed = true, "destroy" deletes the row. When that last
// step fails the row keeps its token and stays unprocessed until an operator
// calls Release.
//
// Rows marked processed are removed by Cleanup once they are older than the
// retention window. Unprocessed rows are never swept.
//
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx) are supported. Queries are
// written with ? placeholders and rebound for PostgreSQL. Schema changes bump
// schemaVersion in schema.go; an existing table with another version fails
// Open with ErrSchemaMismatch.
package queue
