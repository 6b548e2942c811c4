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


// Package stats implements a deterministic analyzer producing scalar
// metrics about a document. It needs no model and never fails, which
// makes it the default analyzer set.
package stats

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// Analyzer computes content statistics: character and word counts,
// chunk count, and element counts per kind.
type Analyzer struct{}

var _ plugin.Analyzer = (*Analyzer)(nil)

func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Kind() string {
	return "stats"
}

func (a *Analyzer) Analyze(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
	metrics := map[string]float64{
		"chars":  float64(utf8.RuneCountInString(doc.Content)),
		"words":  float64(len(strings.Fields(doc.Content))),
		"chunks": float64(len(doc.Chunks)),
	}

	for _, element := range doc.Elements {
		metrics["elements."+string(element.Kind)]++
	}

	return &core.AnalysisResult{
		Analyzer: a.Kind(),
		Metrics:  metrics,
	}, nil
}

// Descriptor advertises the analyzer under the name "stats".
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "stats",
		Group:   plugin.GroupAnalyzers,
		Factory: func(cfg plugin.Config) (any, error) { return New(), nil },
	}
}
