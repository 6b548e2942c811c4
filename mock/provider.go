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


package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// MockLLMProvider is a test double for plugin.LLMProvider.
type MockLLMProvider struct {
	// GenerateFunc is called by Generate if set. If nil, the provider
	// echoes the prompt back.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu        sync.Mutex
	callCount int
}

var _ plugin.LLMProvider = (*MockLLMProvider)(nil)

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return prompt, nil
}

func (m *MockLLMProvider) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
	return plugin.GenerateEach(ctx, m, prompts)
}

// CallCount returns the number of times Generate was called.
func (m *MockLLMProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockOCRProvider is a test double for plugin.OCRProvider.
type MockOCRProvider struct {
	// ExtractTextFunc is called by ExtractText if set. If nil, the
	// provider returns the image bytes reinterpreted as text.
	ExtractTextFunc func(ctx context.Context, image []byte) (string, error)

	mu        sync.Mutex
	callCount int
}

var _ plugin.OCRProvider = (*MockOCRProvider)(nil)

func (m *MockOCRProvider) ExtractText(ctx context.Context, image []byte) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, image)
	}
	return string(image), nil
}

func (m *MockOCRProvider) ExtractTextBatch(ctx context.Context, images [][]byte) ([]string, error) {
	return plugin.ExtractTextEach(ctx, m, images, nil)
}

// CallCount returns the number of times ExtractText was called.
func (m *MockOCRProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockMultimodalProvider is a test double for plugin.MultimodalProvider.
type MockMultimodalProvider struct {
	// ProcessFunc is called by Process if set. If nil, the provider
	// concatenates the text parts.
	ProcessFunc func(ctx context.Context, parts []core.ContentPart) (string, error)
}

var _ plugin.MultimodalProvider = (*MockMultimodalProvider)(nil)

func (m *MockMultimodalProvider) Process(ctx context.Context, parts []core.ContentPart) (string, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, parts)
	}

	var out string
	for _, part := range parts {
		if part.Type == core.PartText {
			out += part.Text
		}
	}
	return out, nil
}

func (m *MockMultimodalProvider) ProcessBatch(ctx context.Context, inputs [][]core.ContentPart) ([]string, error) {
	return plugin.ProcessEach(ctx, m, inputs)
}

// MockKnowledgeProvider is a test double for plugin.KnowledgeProvider.
type MockKnowledgeProvider struct {
	// QueryFunc is called by Query if set. If nil, the provider returns
	// no fragments.
	QueryFunc func(ctx context.Context, topic string, queryCtx map[string]any) ([]core.KnowledgeFragment, error)
}

var _ plugin.KnowledgeProvider = (*MockKnowledgeProvider)(nil)

func (m *MockKnowledgeProvider) Query(ctx context.Context, topic string, queryCtx map[string]any) ([]core.KnowledgeFragment, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, topic, queryCtx)
	}
	return nil, nil
}

// MockReviewer is a test double for plugin.Reviewer.
type MockReviewer struct {
	// ReviewFunc is called by Review if set. If nil, the reviewer
	// reports a clean result.
	ReviewFunc func(ctx context.Context, doc *core.Document, criteria map[string]any) (*core.ReviewResult, error)
}

var _ plugin.Reviewer = (*MockReviewer)(nil)

func (m *MockReviewer) Review(ctx context.Context, doc *core.Document, criteria map[string]any) (*core.ReviewResult, error) {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, doc, criteria)
	}
	return &core.ReviewResult{Complete: true, Consistent: true, Clear: true, Score: 1.0}, nil
}

// MockProposalGenerator is a test double for plugin.ProposalGenerator.
type MockProposalGenerator struct {
	// ProposalsFunc is called by Proposals if set. If nil, the
	// generator returns no proposals.
	ProposalsFunc func(ctx context.Context, proposalCtx map[string]any) ([]core.ChangeProposal, error)
}

var _ plugin.ProposalGenerator = (*MockProposalGenerator)(nil)

func (m *MockProposalGenerator) Proposals(ctx context.Context, proposalCtx map[string]any) ([]core.ChangeProposal, error) {
	if m.ProposalsFunc != nil {
		return m.ProposalsFunc(ctx, proposalCtx)
	}
	return nil, nil
}
