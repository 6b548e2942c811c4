// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docit"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/ingestion"
	"github.com/poiesic/docit/plugin"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docit",
		Usage: "Document ingestion and semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one or more files",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: append(storeFlags(), append(embeddingFlags(),
					&cli.StringFlag{
						Name:  "parser",
						Usage: "Parser plugin name (defaults to the type mapping)",
					},
					&cli.StringFlag{
						Name:  "chunker",
						Usage: "Chunker plugin name",
						Value: "fixed",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in characters",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Overlap between adjacent chunks in characters",
						Value: 100,
					},
					&cli.StringSliceFlag{
						Name:  "analyzer",
						Usage: "Analyzer plugin to run, repeatable",
						Value: cli.NewStringSlice("stats"),
					},
					&cli.StringFlag{
						Name:  "llm-model",
						Usage: "Completion model for LLM-backed analyzers",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks embedded per batch call",
						Value: 16,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
					&cli.DurationFlag{
						Name:  "call-timeout",
						Usage: "Timeout for each external plugin call",
						Value: 60 * time.Second,
					},
				)...),
			},
			{
				Name:      "search",
				Usage:     "Search ingested documents",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(storeFlags(), append(embeddingFlags(),
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"n"},
						Usage:   "Maximum number of matches to return",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "doc",
						Usage: "Restrict the search to one document id",
					},
				)...),
			},
			{
				Name:   "plugins",
				Usage:  "List registered plugins and their configuration keys",
				Action: pluginsCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete documents and their derived records",
				ArgsUsage: "DOC_ID [DOC_ID...]",
				Action:    deleteCommand,
				Flags:     storeFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Data directory for the on-disk stores",
			Value:   "docit-data",
		},
		&cli.StringFlag{
			Name:  "doc-store",
			Usage: "Document store plugin (badger, memory)",
			Value: "badger",
		},
		&cli.StringFlag{
			Name:  "vector-store",
			Usage: "Vector store plugin (chromem, memory)",
			Value: "chromem",
		},
		&cli.StringFlag{
			Name:  "structured-store",
			Usage: "Structured store plugin (badger, memory)",
			Value: "badger",
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API token for the embedding and completion services",
			Value: "none",
		},
	}
}

// settingsFromFlags maps CLI flags onto plugin settings. This is the
// only configuration surface; there are no config files.
func settingsFromFlags(c *cli.Context) *plugin.Settings {
	settings := plugin.DefaultSettings()

	settings.DocumentStore = c.String("doc-store")
	settings.VectorStore = c.String("vector-store")
	settings.StructuredStore = c.String("structured-store")

	dataDir := c.String("data")
	settings.SetConfig(plugin.GroupDocumentStores, "badger", plugin.Config{
		"path": filepath.Join(dataDir, "records"),
	})
	settings.SetConfig(plugin.GroupStructuredStores, "badger", plugin.Config{
		"path": filepath.Join(dataDir, "records"),
	})
	settings.SetConfig(plugin.GroupVectorStores, "chromem", plugin.Config{
		"path": filepath.Join(dataDir, "vectors"),
	})

	if c.IsSet("embedding-model") {
		settings.DefaultEmbedder = "openai"
		settings.SetConfig(plugin.GroupEmbedders, "openai", plugin.Config{
			"host":  c.String("embedding-host"),
			"model": c.String("embedding-model"),
			"token": c.String("token"),
		})
	}

	return settings
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	settings := settingsFromFlags(c)
	settings.DefaultChunker = c.String("chunker")
	settings.EnabledAnalyzers = c.StringSlice("analyzer")
	settings.SetConfig(plugin.GroupChunkers, c.String("chunker"), plugin.Config{
		"chunk_size": c.Int("chunk-size"),
		"overlap":    c.Int("chunk-overlap"),
	})
	if c.IsSet("llm-model") {
		settings.SetConfig(plugin.GroupAnalyzers, "entities", plugin.Config{
			"host":  c.String("embedding-host"),
			"model": c.String("llm-model"),
			"token": c.String("token"),
		})
	}

	system, err := docit.Open(
		docit.WithSettings(settings),
		docit.WithPipelineOptions(
			ingestion.WithBatchSize(c.Int("batch-size")),
			ingestion.WithRetryPolicy(c.Int("max-retries"), c.Duration("retry-delay")),
			ingestion.WithCallTimeout(c.Duration("call-timeout")),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to open system: %w", err)
	}
	defer system.Close()

	ctx := context.Background()
	opts := &ingestion.IngestOptions{Parser: c.String("parser")}

	failed := 0
	for _, path := range c.Args().Slice() {
		res, err := system.IngestFile(ctx, path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", path, err)
			continue
		}
		status := string(res.State)
		if res.Degraded {
			status += " (degraded)"
		}
		fmt.Fprintf(os.Stderr, "%s: %s doc=%s chunks=%d resumed=%d elapsed=%s\n",
			path, status, res.DocId, len(res.Doc.Chunks), res.ResumedChunks, res.Elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}
	maxHits := c.Int("max-hits")
	if maxHits <= 0 {
		return fmt.Errorf("max-hits must be greater than 0")
	}

	system, err := docit.Open(docit.WithSettings(settingsFromFlags(c)))
	if err != nil {
		return fmt.Errorf("failed to open system: %w", err)
	}
	defer system.Close()

	searcher, err := system.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	matches, err := searcher.FindInDocument(context.Background(), c.Args().First(), maxHits, core.ID(c.String("doc")))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "no matches")
		return nil
	}
	for i, match := range matches {
		fmt.Printf("%d. [%.3f] doc=%s chunk=%s\n", i+1, match.Score, match.DocId, match.ChunkId)
		fmt.Printf("   %s\n", strings.TrimSpace(match.Text))
	}
	return nil
}

func pluginsCommand(c *cli.Context) error {
	system, err := docit.Open()
	if err != nil {
		return fmt.Errorf("failed to open system: %w", err)
	}
	defer system.Close()

	for _, desc := range system.Registry().Descriptors() {
		fmt.Printf("%s/%s\n", desc.Group, desc.Name)
		for _, field := range desc.Schema {
			fmt.Printf("    %-16s %s (default %v)\n", field.Key, field.Description, field.Default)
		}
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one document id is required")
	}

	system, err := docit.Open(docit.WithSettings(settingsFromFlags(c)))
	if err != nil {
		return fmt.Errorf("failed to open system: %w", err)
	}
	defer system.Close()

	ctx := context.Background()
	failed := 0
	for _, arg := range c.Args().Slice() {
		if err := system.Delete(ctx, core.ID(arg)); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", arg, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: deleted\n", arg)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, c.NArg())
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
