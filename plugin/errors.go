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


package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error surfaced by a plugin or the registry wraps
// exactly one of these, so callers can classify with errors.Is.
var (
	// ErrConfiguration indicates bad or missing plugin configuration.
	// Raised at resolution time and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound indicates an unknown capability group or plugin name.
	ErrNotFound = errors.New("plugin not found")

	// ErrParsing indicates a parser failed on its input. Aborts the
	// run; not retried automatically.
	ErrParsing = errors.New("parsing failed")

	// ErrProvider indicates an embedding/LLM/OCR backend failure.
	// Retried per policy during embedding, then surfaced.
	ErrProvider = errors.New("provider failure")

	// ErrWorkflow indicates a generic orchestration failure, e.g. a
	// chunker internal fault.
	ErrWorkflow = errors.New("workflow failure")

	// ErrStorage indicates a persistence failure, reported per store.
	ErrStorage = errors.New("storage failure")

	// ErrNotImplemented indicates an optional capability a plugin does
	// not support.
	ErrNotImplemented = errors.New("capability not implemented")

	// ErrRecordNotFound indicates that a requested stored record was
	// not found.
	ErrRecordNotFound = errors.New("record not found")
)

// ConfigError reports an invalid or missing configuration option for a
// named plugin. It matches ErrConfiguration under errors.Is.
type ConfigError struct {
	Plugin string
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("plugin %q: %s", e.Plugin, e.Reason)
	}
	return fmt.Sprintf("plugin %q: option %q: %s", e.Plugin, e.Option, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NotFoundError reports a failed plugin resolution. It matches
// ErrNotFound under errors.Is.
type NotFoundError struct {
	Group Group
	Name  string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("no default plugin configured for group %q", e.Group)
	}
	return fmt.Sprintf("plugin %q not registered in group %q", e.Name, e.Group)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotImplemented builds the error a plugin returns for an optional
// operation it does not support, naming both the plugin and the
// operation.
func NotImplemented(plugin, op string) error {
	return fmt.Errorf("%w: plugin %q does not support %q", ErrNotImplemented, plugin, op)
}

// BatchError reports a batch operation that failed for some items,
// carrying the indices that failed. Unwrap yields the first underlying
// failure so errors.Is still classifies the kind.
type BatchError struct {
	Op     string
	Failed []int
	Errs   []error
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for i, err := range e.Errs {
		parts = append(parts, fmt.Sprintf("index %d: %v", e.Failed[i], err))
	}
	return fmt.Sprintf("%s: %d of batch failed: %s", e.Op, len(e.Failed), strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() error {
	if len(e.Errs) == 0 {
		return nil
	}
	return e.Errs[0]
}
