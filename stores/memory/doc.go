// Package memory provides in-memory implementations of the three store
// contracts (DocumentStore, VectorStore, StructuredStore).
//
// The memory stores are the zero-configuration defaults: they need no
// filesystem path and no external service, which makes them the right
// backends for tests and first runs. Nothing survives process exit.
package memory
