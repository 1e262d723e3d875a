// Package ingestion indexes journal entries and conversation turns.
//
// The Pipeline type runs the indexing workflow:
//   - Analyzing text into a summary and metadata
//   - Storing the record and its attribute index
//   - Embedding the summary into the vector index
//
// Journal entries are indexed synchronously so the caller learns about
// failures. Conversation turns are indexed on a worker pool; errors during
// async processing are logged and counted but never reach the caller.
package ingestion
