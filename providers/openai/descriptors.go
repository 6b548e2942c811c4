package openai

import "github.com/poiesic/docit/plugin"

const (
	defaultEmbeddingModel  = "embeddinggemma"
	defaultCompletionModel = "qwen2.5:3b"
)

// Descriptors advertises the embedder and the completion provider
// under the name "openai". Both speak to any OpenAI-compatible
// endpoint; the defaults target a local Ollama-style server with no
// authentication.
func Descriptors() []plugin.Descriptor {
	schema := func(defaultModel string) plugin.Schema {
		return plugin.Schema{
			{Key: "host", Kind: plugin.KindString, Default: DefaultHost, Description: "base URL of the OpenAI-compatible API"},
			{Key: "model", Kind: plugin.KindString, Default: defaultModel, Description: "model identifier"},
			{Key: "token", Kind: plugin.KindString, Default: "none", Description: "API token, \"none\" for unauthenticated local services"},
		}
	}

	return []plugin.Descriptor{
		{
			Name:  "openai",
			Group: plugin.GroupEmbedders,
			Factory: func(cfg plugin.Config) (any, error) {
				return NewEmbedder(configFrom(cfg, defaultEmbeddingModel))
			},
			Schema: schema(defaultEmbeddingModel),
		},
		{
			Name:  "openai",
			Group: plugin.GroupLLMProviders,
			Factory: func(cfg plugin.Config) (any, error) {
				return NewLLM(configFrom(cfg, defaultCompletionModel))
			},
			Schema: schema(defaultCompletionModel),
		},
	}
}
