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


// Package plugin defines the capability contracts of docit and the
// registry that resolves concrete implementations of them.
//
// Every stage of the ingestion pipeline is performed by a plugin: a
// value implementing one of the capability interfaces declared here
// (Parser, Chunker, Embedder, Analyzer, the three store contracts, and
// the provider contracts). The pipeline never touches a concrete type;
// it asks the Registry for an instance by capability group and name and
// works against the interface.
//
// # Registration
//
// Plugins advertise themselves through a Descriptor: a (group, name)
// pair, a Factory that builds an instance from a Config, and a Schema
// naming the configuration options the factory recognizes. Descriptors
// are collected into a Manifest and loaded once at startup:
//
//	reg, err := plugin.NewRegistry(settings)
//	reg.Load(plugin.Manifest{
//	    {Name: "text", Group: plugin.GroupParsers, Factory: ..., Schema: ...},
//	    {Name: "badger", Group: plugin.GroupDocumentStores, Factory: ...},
//	})
//
// Loading fails soft: a malformed descriptor is logged and skipped so
// one broken plugin never takes down the rest.
//
// # Resolution
//
// Resolve returns a cached or freshly constructed instance for
// (group, name); an empty name resolves the configured default for the
// group, falling back to the group's only registered plugin when the
// configuration names none. Configuration is validated against the
// descriptor's Schema before the factory runs, so a bad option surfaces
// as a ConfigError at resolution time rather than mid-pipeline.
//
// # Implementation packages
//
// Built-in plugins live in their own packages (parsers/text,
// chunkers/fixed, providers/openai, stores/badger, stores/chromem,
// stores/memory, ...); the mock package carries function-field doubles
// for every contract.
package plugin
