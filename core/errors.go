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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrEmptyID indicates a required identifier is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyFingerprint indicates the source fingerprint is missing.
	ErrEmptyFingerprint = errors.New("source fingerprint cannot be empty")

	// ErrEmptyText indicates a chunk's Text field is empty.
	ErrEmptyText = errors.New("chunk text cannot be empty")

	// ErrEmptyEntityName indicates the entity Name field is empty.
	ErrEmptyEntityName = errors.New("entity name cannot be empty")

	// ErrEmptyEntityType indicates the entity Type field is empty.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")

	// ErrInvalidConfidence indicates a confidence score outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")

	// ErrNegativeOrderIndex indicates a chunk with a negative order index.
	ErrNegativeOrderIndex = errors.New("order index cannot be negative")

	// ErrOrderIndexConflict indicates a chunk set whose order indexes
	// are not unique and strictly increasing.
	ErrOrderIndexConflict = errors.New("chunk order indexes must be unique and strictly increasing")

	// ErrDocIdMismatch indicates a chunk whose DocId does not match the
	// document it is attached to.
	ErrDocIdMismatch = errors.New("chunk doc id does not match document")
)
