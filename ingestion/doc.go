// Package ingestion provides the pipeline orchestrating document
// processing.
//
// One call to Pipeline.Ingest drives a raw source through the full
// stage sequence (parse, chunk, embed, analyze, persist) using plugin
// instances resolved from the registry. Runs for different documents
// proceed concurrently; runs for the same document id are serialized
// so derived artifacts are never produced twice.
//
// Failure handling is stage-aware: a parser fault aborts the run with
// nothing persisted, embedding faults are retried with backoff and
// leave completed batches resumable, analyzer faults degrade the run
// without blocking sibling analyzers, and persistence is a best-effort
// three-way write reported per store.
package ingestion
