package plugin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/docit/core"
)

// Default batch fallbacks. Each batch operation on a capability
// contract is required only as a single-item call; plugins without
// backend-native batching delegate their batch method to the matching
// helper here, which loops and aggregates failed indices.

// EmbedEach implements Embedder.EmbedTexts with a per-item loop.
// Any item failure fails the batch with a BatchError reporting the
// indices (and underlying errors) that failed.
func EmbedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var failed []int
	var errs []error

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			failed = append(failed, i)
			errs = append(errs, err)
			continue
		}
		vectors[i] = vec
	}

	if len(failed) > 0 {
		return nil, &BatchError{Op: "embed texts", Failed: failed, Errs: errs}
	}
	return vectors, nil
}

// GenerateEach implements LLMProvider.GenerateBatch with a per-item
// loop and BatchError aggregation.
func GenerateEach(ctx context.Context, p LLMProvider, prompts []string) ([]string, error) {
	outputs := make([]string, len(prompts))
	var failed []int
	var errs []error

	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := p.Generate(ctx, prompt)
		if err != nil {
			failed = append(failed, i)
			errs = append(errs, err)
			continue
		}
		outputs[i] = out
	}

	if len(failed) > 0 {
		return nil, &BatchError{Op: "generate completions", Failed: failed, Errs: errs}
	}
	return outputs, nil
}

// ExtractTextEach implements OCRProvider.ExtractTextBatch with the
// degraded per-item contract: a failed image yields "" in its slot and
// a logged warning, and the batch call itself succeeds. Only context
// cancellation aborts the loop.
func ExtractTextEach(ctx context.Context, o OCRProvider, images [][]byte, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	texts := make([]string, len(images))
	for i, image := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := o.ExtractText(ctx, image)
		if err != nil {
			logger.Warn("ocr failed for image, degrading to empty text", "index", i, "err", err)
			continue
		}
		texts[i] = text
	}
	return texts, nil
}

// ProcessEach implements MultimodalProvider.ProcessBatch with a
// per-item loop and BatchError aggregation.
func ProcessEach(ctx context.Context, p MultimodalProvider, inputs [][]core.ContentPart) ([]string, error) {
	outputs := make([]string, len(inputs))
	var failed []int
	var errs []error

	for i, parts := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := p.Process(ctx, parts)
		if err != nil {
			failed = append(failed, i)
			errs = append(errs, err)
			continue
		}
		outputs[i] = out
	}

	if len(failed) > 0 {
		return nil, &BatchError{Op: "process multimodal inputs", Failed: failed, Errs: errs}
	}
	return outputs, nil
}

// SaveDocumentsEach implements DocumentStore.SaveBatch with a per-item
// loop: every item is attempted, failures are aggregated into a
// BatchError reporting the failed indices.
func SaveDocumentsEach(ctx context.Context, docs []*core.Document, save func(context.Context, *core.Document) error) error {
	var failed []int
	var errs []error

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := save(ctx, doc); err != nil {
			failed = append(failed, i)
			errs = append(errs, err)
		}
	}

	if len(failed) > 0 {
		return &BatchError{Op: "save documents", Failed: failed, Errs: errs}
	}
	return nil
}

// SaveRecordsEach implements StructuredStore.SaveBatch with a per-item
// loop and BatchError aggregation.
func SaveRecordsEach(ctx context.Context, recs []Record, save func(context.Context, Record) error) error {
	var failed []int
	var errs []error

	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := save(ctx, rec); err != nil {
			failed = append(failed, i)
			errs = append(errs, err)
		}
	}

	if len(failed) > 0 {
		return &BatchError{Op: "save records", Failed: failed, Errs: errs}
	}
	return nil
}

// DeleteEach implements the DeleteBatch contracts with a per-item
// loop. Missing records are skipped per the batch contract; other
// failures are aggregated into a BatchError.
func DeleteEach(ctx context.Context, ids []core.ID, del func(context.Context, core.ID) error) error {
	var failed []int
	var errs []error

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := del(ctx, id)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			failed = append(failed, i)
			errs = append(errs, err)
		}
	}

	if len(failed) > 0 {
		return &BatchError{Op: "delete records", Failed: failed, Errs: errs}
	}
	return nil
}
