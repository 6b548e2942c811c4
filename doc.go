// Package docit ingests heterogeneous documents through a pluggable
// parse, chunk, embed, analyze and persist pipeline and answers
// similarity searches over the result.
//
// The root package is a thin facade: Open wires the built-in plugins
// into a registry and a pipeline, and System exposes ingestion, search
// and deletion. Everything underneath is a plugin resolved by name
// from the registry, so embedders, parsers, analyzers and stores can
// be swapped through Settings without touching the pipeline.
package docit
