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


// Package search provides query-side retrieval over ingested
// documents.
//
// The Searcher embeds a query text with the same embedder the
// ingestion pipeline used, runs a similarity search against the vector
// store, and re-ranks the matches with a verbatim keyword boost: a
// chunk containing every meaningful query word scores higher than pure
// vector similarity alone would place it.
package search
