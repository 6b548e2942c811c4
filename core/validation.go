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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Fingerprint must not be empty
//
// NOT validated (populated by later pipeline stages):
//   - Content (empty is legal for image sources before OCR)
//   - Chunks, Entities, Relationships, embeddings
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}

	if doc.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFingerprint)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Id and DocId must not be empty
//   - OrderIndex must not be negative
//   - Text must not be empty
//
// NOT validated (populated by later pipeline stages):
//   - Embedding (nil until the embedding stage ran)
//   - Entities, Relationships
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Id == "" || chunk.DocId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyID)
	}

	if chunk.OrderIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeOrderIndex)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	return nil
}

// ValidateChunkSet validates the chunk set produced for one document:
// every chunk must pass ValidateChunk, belong to the document, and the
// order indexes must be unique and strictly increasing in slice order.
func ValidateChunkSet(docId ID, chunks []*Chunk) error {
	prev := -1
	for i, chunk := range chunks {
		if err := ValidateChunk(chunk); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}

		if chunk.DocId != docId {
			return fmt.Errorf("chunk %d: %w: %q vs %q", i, ErrDocIdMismatch, chunk.DocId, docId)
		}

		if chunk.OrderIndex <= prev {
			return fmt.Errorf("chunk %d: %w: %d after %d", i, ErrOrderIndexConflict, chunk.OrderIndex, prev)
		}
		prev = chunk.OrderIndex
	}

	return nil
}

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Type must not be empty
//   - Confidence must be in [0,1]
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if entity.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityType)
	}

	if !IsValidConfidence(entity.Confidence) {
		return fmt.Errorf("%w: %w: %g", ErrInvalidEntity, ErrInvalidConfidence, entity.Confidence)
	}

	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
//
// Validation rules:
//   - FromEntityId and ToEntityId must not be empty
//   - Confidence must be in [0,1]
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}

	if rel.FromEntityId == "" || rel.ToEntityId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrEmptyID)
	}

	if !IsValidConfidence(rel.Confidence) {
		return fmt.Errorf("%w: %w: %g", ErrInvalidRelationship, ErrInvalidConfidence, rel.Confidence)
	}

	return nil
}

// IsValidConfidence checks that a confidence score lies in [0,1].
func IsValidConfidence(c float64) bool {
	return c >= 0 && c <= 1
}
