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


package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docit/plugin"
)

// Config holds the connection settings for an OpenAI-compatible
// endpoint (OpenAI itself, Ollama, LocalAI, vLLM).
type Config struct {
	// Host is the base URL of the API. The /v1 suffix most
	// OpenAI-compatible servers require is appended when missing.
	Host string

	// Model is the model identifier.
	// Example: "embeddinggemma", "text-embedding-3-small", "qwen2.5:3b"
	Model string

	// Token is the API token. Local services that skip authentication
	// accept the default "none".
	Token string
}

// DefaultHost points at a local Ollama-style server, so a first run
// needs no credentials at all.
const DefaultHost = "http://localhost:11434/v1"

// Normalize brings the configuration into canonical form: an empty
// token becomes "none" and the host gains the /v1 suffix if missing.
func (c *Config) Normalize() {
	if c.Token == "" {
		c.Token = "none"
	}
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate normalizes the configuration and checks it is complete.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return fmt.Errorf("%w: host is required", plugin.ErrConfiguration)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", plugin.ErrConfiguration)
	}
	return nil
}

func configFrom(cfg plugin.Config, defaultModel string) *Config {
	return &Config{
		Host:  cfg.String("host", DefaultHost),
		Model: cfg.String("model", defaultModel),
		Token: cfg.String("token", "none"),
	}
}
