package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// analyze runs every enabled analyzer over the document. Analyzers are
// independent: each runs in the worker pool, a failure is recorded
// against the analyzer's name without blocking the others, and an
// enabled name that resolves to nothing degrades the run the same way.
// Results are merged into the document afterwards, in the configured
// analyzer order, so the outcome does not depend on scheduling.
func (p *Pipeline) analyze(ctx context.Context, doc *core.Document, logger *slog.Logger) map[string]error {
	names := p.registry.Settings().EnabledAnalyzers
	if len(names) == 0 {
		return nil
	}

	failures := make(map[string]error)
	results := make(map[string]*core.AnalysisResult)

	var mu sync.Mutex
	var wg sync.WaitGroup

	// Submitted analyzers write failures concurrently, so these writes
	// take the lock too.
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures[name] = err
	}

	for _, name := range names {
		analyzer, err := p.registry.Analyzer(name)
		if err != nil {
			logger.Warn("skipping unresolvable analyzer", "analyzer", name, "err", err)
			record(name, err)
			continue
		}

		wg.Add(1)
		run := func() {
			defer wg.Done()

			callCtx, cancel := p.callContext(ctx)
			defer cancel()

			result, err := analyzer.Analyze(callCtx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("analyzer failed", "analyzer", name, "err", err)
				failures[name] = fmt.Errorf("analyzer %q: %w", name, err)
				return
			}
			results[name] = result
		}
		if err := p.analyzePool.Submit(run); err != nil {
			wg.Done()
			record(name, fmt.Errorf("%w: submitting analyzer %q: %w", plugin.ErrWorkflow, name, err))
		}
	}
	wg.Wait()

	for _, name := range names {
		result, ok := results[name]
		if !ok {
			continue
		}
		mergeAnalysis(doc, result)
	}

	if len(failures) == 0 {
		return nil
	}
	return failures
}

// mergeAnalysis attaches one analyzer's output to the document,
// assigning deterministic ids so re-analysis replaces rather than
// duplicates records in the structured store.
func mergeAnalysis(doc *core.Document, result *core.AnalysisResult) {
	for _, entity := range result.Entities {
		entity.DocId = doc.Id
		if entity.Id == "" {
			entity.Id = core.EntityID(doc.Id, entity.Type, entity.Name)
		}
		entity.Confidence = clamp01(entity.Confidence)
		doc.Entities = append(doc.Entities, entity)
	}

	for _, rel := range result.Relationships {
		rel.DocId = doc.Id
		if rel.Id == "" {
			rel.Id = core.RelationshipID(doc.Id, rel.FromEntityId, rel.ToEntityId)
		}
		rel.Confidence = clamp01(rel.Confidence)
		doc.Relationships = append(doc.Relationships, rel)
	}

	if len(result.Metrics) > 0 {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		for key, value := range result.Metrics {
			doc.Metadata[result.Analyzer+"."+key] = value
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
