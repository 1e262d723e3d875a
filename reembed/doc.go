// Package reembed rebuilds the vector index from the document store.
//
// Every stored journal entry and conversation turn is re-embedded with the
// configured embedder and upserted into the vector index. Run it after
// switching embedding models or after restoring an empty Postgres index.
//
// Records are streamed from the repositories in batches, embedded on a
// worker pool with exponential-backoff retries, and normalized to unit
// length before they are written.
package reembed
