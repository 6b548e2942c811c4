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


// Package entities implements an LLM-backed analyzer that extracts
// named entities and the relationships between them from document
// content. Responses are requested in JSON mode; code fences are
// stripped and common JSON defects repaired before parsing.
package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
	"github.com/poiesic/docit/providers/openai"
)

const (
	defaultMinImportance = 4
	parseAttempts        = 3
	maxContentRunes      = 8000
)

// Analyzer extracts entities and relationships using a completion
// backend.
type Analyzer struct {
	llm           plugin.LLMProvider
	minImportance int
	logger        *slog.Logger
}

var _ plugin.Analyzer = (*Analyzer)(nil)

// jsonGenerator is the optional JSON-mode surface a completion
// provider can offer. Providers without it get the system prompt
// prepended to a plain completion call.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, user string) (string, error)
}

// extractedEntity and extractedRelationship match the JSON shape the
// prompt demands from the model.
type extractedEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Importance  int    `json:"importance"`
}

type extractedRelationship struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Importance  int      `json:"importance"`
}

type extraction struct {
	Entities      []extractedEntity       `json:"entities"`
	Relationships []extractedRelationship `json:"relationships"`
}

// New creates an analyzer over the given completion provider. Entities
// and relationships below minImportance (1-10) are dropped.
func New(llm plugin.LLMProvider, minImportance int) (*Analyzer, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: entities analyzer requires a completion provider", plugin.ErrConfiguration)
	}
	if minImportance < 1 || minImportance > 10 {
		return nil, fmt.Errorf("%w: min importance must be between 1 and 10, got %d", plugin.ErrConfiguration, minImportance)
	}
	return &Analyzer{
		llm:           llm,
		minImportance: minImportance,
		logger:        slog.Default().With("component", "entities-analyzer"),
	}, nil
}

func (a *Analyzer) Kind() string {
	return "entities"
}

func (a *Analyzer) Analyze(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
	content := truncateRunes(doc.Content, maxContentRunes)
	if strings.TrimSpace(content) == "" {
		return &core.AnalysisResult{Analyzer: a.Kind()}, nil
	}

	result, err := a.extract(ctx, content)
	if err != nil {
		return nil, err
	}

	return a.convert(doc, result), nil
}

// extract runs the completion and parses its response, retrying the
// whole call when the model produced unparseable JSON.
func (a *Analyzer) extract(ctx context.Context, content string) (*extraction, error) {
	var result extraction
	var lastErr error

	for attempt := 1; attempt <= parseAttempts; attempt++ {
		response, err := a.generate(ctx, content)
		if err != nil {
			a.logger.Error("extraction call failed", "attempt", attempt, "err", err)
			return nil, err
		}

		text := stripFences(response)
		text = repairJSON(text)

		if err := json.Unmarshal([]byte(text), &result); err != nil {
			lastErr = err
			a.logger.Warn("error parsing extraction response",
				"attempt", attempt,
				"response", text,
				"err", err)
			continue
		}
		return &result, nil
	}

	a.logger.Error("failed to parse extraction response after retries", "err", lastErr)
	return nil, fmt.Errorf("%w: parsing extraction response: %w", plugin.ErrProvider, lastErr)
}

func (a *Analyzer) generate(ctx context.Context, content string) (string, error) {
	if jg, ok := a.llm.(jsonGenerator); ok {
		return jg.GenerateJSON(ctx, systemPrompt, content)
	}
	return a.llm.Generate(ctx, systemPrompt+"\n\nText:\n"+content)
}

// convert filters by importance and maps the model's 1-10 importance
// onto the [0,1] confidence scale. Entity names key the relationship
// endpoints, so unknown endpoints are dropped.
func (a *Analyzer) convert(doc *core.Document, result *extraction) *core.AnalysisResult {
	out := &core.AnalysisResult{Analyzer: a.Kind()}

	entityIds := make(map[string]core.ID)
	for _, e := range result.Entities {
		if e.Name == "" || e.Importance < a.minImportance {
			continue
		}
		entityType := normalizeType(e.Type)
		id := core.EntityID(doc.Id, entityType, e.Name)
		entityIds[strings.ToLower(e.Name)] = id
		out.Entities = append(out.Entities, &core.Entity{
			Id:          id,
			DocId:       doc.Id,
			Name:        e.Name,
			Type:        entityType,
			Description: e.Description,
			Confidence:  confidenceFor(e.Importance),
			SourceId:    doc.Id,
		})
	}

	for _, r := range result.Relationships {
		if r.Importance < a.minImportance {
			continue
		}
		from, okFrom := entityIds[strings.ToLower(r.From)]
		to, okTo := entityIds[strings.ToLower(r.To)]
		if !okFrom || !okTo {
			a.logger.Debug("dropping relationship with unknown endpoint", "from", r.From, "to", r.To)
			continue
		}
		out.Relationships = append(out.Relationships, &core.Relationship{
			Id:           core.RelationshipID(doc.Id, from, to),
			DocId:        doc.Id,
			FromEntityId: from,
			ToEntityId:   to,
			Description:  r.Description,
			Keywords:     r.Keywords,
			Weight:       float64(r.Importance),
			Confidence:   confidenceFor(r.Importance),
			SourceId:     doc.Id,
		})
	}

	a.logger.Debug("extracted entities",
		"total", len(result.Entities),
		"kept", len(out.Entities),
		"relationships", len(out.Relationships))
	return out
}

// confidenceFor maps importance 1-10 to confidence in [0,1].
func confidenceFor(importance int) float64 {
	if importance < 1 {
		return 0
	}
	if importance > 10 {
		return 1
	}
	return float64(importance) / 10
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "concept"
	}
	return strings.ReplaceAll(t, " ", "_")
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Descriptor advertises the analyzer under the name "entities". The
// factory builds its own completion client so the analyzer works
// against any OpenAI-compatible endpoint configured for it.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:  "entities",
		Group: plugin.GroupAnalyzers,
		Factory: func(cfg plugin.Config) (any, error) {
			llm, err := openai.NewLLM(&openai.Config{
				Host:  cfg.String("host", openai.DefaultHost),
				Model: cfg.String("model", "qwen2.5:3b"),
				Token: cfg.String("token", "none"),
			})
			if err != nil {
				return nil, err
			}
			return New(llm, cfg.Int("min_importance", defaultMinImportance))
		},
		Schema: plugin.Schema{
			{Key: "host", Kind: plugin.KindString, Default: openai.DefaultHost, Description: "base URL of the OpenAI-compatible API"},
			{Key: "model", Kind: plugin.KindString, Default: "qwen2.5:3b", Description: "completion model identifier"},
			{Key: "token", Kind: plugin.KindString, Default: "none", Description: "API token"},
			{Key: "min_importance", Kind: plugin.KindInt, Default: defaultMinImportance, Description: "minimum importance (1-10) an extraction must reach"},
		},
	}
}
