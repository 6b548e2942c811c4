package entities

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/mock"
	"github.com/poiesic/docit/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "entities": [
    {"name": "Grace Hopper", "type": "person", "description": "computer scientist", "importance": 9},
    {"name": "compiler", "type": "technology", "description": "", "importance": 8},
    {"name": "footnote", "type": "concept", "description": "", "importance": 2}
  ],
  "relationships": [
    {"from": "Grace Hopper", "to": "compiler", "description": "developed", "keywords": ["development"], "importance": 9},
    {"from": "Grace Hopper", "to": "footnote", "description": "", "importance": 8},
    {"from": "Grace Hopper", "to": "compiler", "description": "minor aside", "importance": 1}
  ]
}`

func testDoc() *core.Document {
	return &core.Document{
		Id:      "doc:test",
		Content: "Grace Hopper developed the first compiler.",
	}
}

func fixedLLM(response string) *mock.MockLLMProvider {
	return &mock.MockLLMProvider{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return response, nil
		},
	}
}

func TestAnalyzer_ExtractsEntitiesAndRelationships(t *testing.T) {
	analyzer, err := New(fixedLLM(sampleResponse), 4)
	require.NoError(t, err)

	result, err := analyzer.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, "entities", result.Analyzer)

	// "footnote" (importance 2) is below the threshold.
	require.Len(t, result.Entities, 2)
	hopper := result.Entities[0]
	assert.Equal(t, "Grace Hopper", hopper.Name)
	assert.Equal(t, "person", hopper.Type)
	assert.Equal(t, 0.9, hopper.Confidence)
	assert.Equal(t, core.EntityID("doc:test", "person", "Grace Hopper"), hopper.Id)
	assert.Equal(t, core.ID("doc:test"), hopper.DocId)

	// The low-importance relationship and the one pointing at the
	// filtered entity are both dropped.
	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, hopper.Id, rel.FromEntityId)
	assert.Equal(t, result.Entities[1].Id, rel.ToEntityId)
	assert.Equal(t, 0.9, rel.Confidence)
	assert.Equal(t, []string{"development"}, rel.Keywords)
}

func TestAnalyzer_StripsCodeFences(t *testing.T) {
	analyzer, err := New(fixedLLM("```json\n"+sampleResponse+"\n```"), 4)
	require.NoError(t, err)

	result, err := analyzer.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Len(t, result.Entities, 2)
}

func TestAnalyzer_RetriesMalformedJSON(t *testing.T) {
	calls := 0
	llm := &mock.MockLLMProvider{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			calls++
			if calls < 3 {
				return "here is the JSON you asked for: {", nil
			}
			return sampleResponse, nil
		},
	}
	analyzer, err := New(llm, 4)
	require.NoError(t, err)

	result, err := analyzer.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, result.Entities, 2)
}

func TestAnalyzer_GivesUpAfterRepeatedMalformedJSON(t *testing.T) {
	analyzer, err := New(fixedLLM("not json at all"), 4)
	require.NoError(t, err)

	_, err = analyzer.Analyze(context.Background(), testDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrProvider)
}

func TestAnalyzer_ProviderFailureSurfaces(t *testing.T) {
	llm := &mock.MockLLMProvider{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	analyzer, err := New(llm, 4)
	require.NoError(t, err)

	_, err = analyzer.Analyze(context.Background(), testDoc())
	require.Error(t, err)
}

func TestAnalyzer_EmptyContentSkipsCall(t *testing.T) {
	llm := &mock.MockLLMProvider{}
	analyzer, err := New(llm, 4)
	require.NoError(t, err)

	result, err := analyzer.Analyze(context.Background(), &core.Document{Id: "doc:empty", Content: "   "})
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Equal(t, 0, llm.CallCount())
}

func TestAnalyzer_NormalizesEntityTypes(t *testing.T) {
	response := `{"entities": [{"name": "x", "type": "Abstract Concept", "importance": 8}], "relationships": []}`
	analyzer, err := New(fixedLLM(response), 4)
	require.NoError(t, err)

	result, err := analyzer.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "abstract_concept", result.Entities[0].Type)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil, 4)
	assert.ErrorIs(t, err, plugin.ErrConfiguration)

	_, err = New(&mock.MockLLMProvider{}, 0)
	assert.ErrorIs(t, err, plugin.ErrConfiguration)

	_, err = New(&mock.MockLLMProvider{}, 11)
	assert.ErrorIs(t, err, plugin.ErrConfiguration)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid passes through", `{"a": 1}`, `{"a": 1}`},
		{"missing opening quote", `{name": "x", type": "y"}`, `{"name": "x", "type": "y"}`},
		{"nested objects untouched", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.input))
		})
	}
}
