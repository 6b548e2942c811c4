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
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Config is the configuration mapping handed to a plugin factory.
// Values arrive as whatever the caller supplied (flags, literals, or
// decoded JSON, where numbers come through as float64); the typed
// getters below normalize access.
type Config map[string]any

// String returns the option as a string, or def when absent.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Int returns the option as an int, accepting integral float64 values
// (the shape JSON decoding produces), or def when absent.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return def
}

// Bool returns the option as a bool, or def when absent.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Float returns the option as a float64, or def when absent.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Duration returns the option as a time.Duration, accepting either a
// Duration value or a parseable string like "30s", or def when absent.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// OptionKind enumerates the value types a configuration option can
// declare in its schema.
type OptionKind int

const (
	KindString OptionKind = iota + 1
	KindInt
	KindBool
	KindFloat
	KindDuration
)

func (k OptionKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// ConfigKey describes one recognized configuration option of a plugin.
type ConfigKey struct {
	Key         string
	Kind        OptionKind
	Required    bool
	Default     any
	Description string
}

// Schema is the recognized option set a plugin declares in its
// descriptor. Validation happens at resolution time, before the
// factory runs.
type Schema []ConfigKey

// Validate checks cfg against the schema for the named plugin and
// returns the effective configuration: defaults filled in, values
// type-checked, unrecognized options dropped with a warning. A missing
// required option or a type mismatch fails with a ConfigError naming
// the plugin and the option.
func (s Schema) Validate(pluginName string, cfg Config, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	known := make(map[string]ConfigKey, len(s))
	for _, key := range s {
		known[key.Key] = key
	}

	out := make(Config, len(s))
	for name, value := range cfg {
		key, ok := known[name]
		if !ok {
			logger.Warn("ignoring unrecognized plugin option",
				"plugin", pluginName,
				"option", name)
			continue
		}
		if !key.accepts(value) {
			return nil, &ConfigError{
				Plugin: pluginName,
				Option: name,
				Reason: fmt.Sprintf("expected %s, got %T", key.Kind, value),
			}
		}
		out[name] = value
	}

	for _, key := range s {
		if _, ok := out[key.Key]; ok {
			continue
		}
		if key.Default != nil {
			out[key.Key] = key.Default
			continue
		}
		if key.Required {
			return nil, &ConfigError{
				Plugin: pluginName,
				Option: key.Key,
				Reason: "required option missing",
			}
		}
	}

	return out, nil
}

// accepts reports whether a supplied value is usable for this option's
// declared kind, mirroring the coercions the Config getters perform.
func (k ConfigKey) accepts(value any) bool {
	switch k.Kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindInt:
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == math.Trunc(v)
		}
		return false
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindFloat:
		switch value.(type) {
		case float64, int:
			return true
		}
		return false
	case KindDuration:
		switch v := value.(type) {
		case time.Duration:
			return true
		case string:
			_, err := time.ParseDuration(v)
			return err == nil
		}
		return false
	default:
		return false
	}
}
