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


// Package mock provides test doubles for every capability contract in
// the plugin package.
//
// Each double exposes function fields (ParseFunc, EmbedTextFunc, ...)
// for injecting custom behavior, plus a call counter for assertions.
// Fields left nil fall back to deterministic defaults, so a zero-value
// mock is usable as-is in most tests.
package mock
