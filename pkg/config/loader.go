package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a .yaml, .yml or .json file.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON document.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// EnvOverrides maps config keys to the environment variables that set
// them, in increasing priority.
var EnvOverrides = map[string][]string{
	"ollama.host":                {"OLLAMA_HOST", "VICTORUNO_OLLAMA_HOST"},
	"ollama.model":               {"OLLAMA_MODEL", "VICTORUNO_OLLAMA_MODEL"},
	"model.provider":             {"VICTORUNO_MODEL_PROVIDER"},
	"agent.name":                 {"AGENT_NAME", "VICTORUNO_AGENT_NAME"},
	"agent.reset_clears_history": {"VICTORUNO_RESET_CLEARS_HISTORY"},
	"web.host":                   {"WEB_HOST", "VICTORUNO_WEB_HOST"},
	"web.port":                   {"WEB_PORT", "VICTORUNO_WEB_PORT"},
	"data_dir":                   {"VICTORUNO_DATA_DIR"},
	"store.kind":                 {"VICTORUNO_STORE"},
	"search.enabled":             {"VICTORUNO_SEARCH_ENABLED"},
	"search.query_strategy":      {"VICTORUNO_QUERY_STRATEGY"},
	"log.level":                  {"VICTORUNO_LOG_LEVEL"},
}

// ApplyEnv overlays environment variables onto c using EnvOverrides.
// lookup is usually os.LookupEnv; tests pass a map-backed func.
func ApplyEnv(c Config, lookup func(string) (string, bool)) {
	for key, names := range EnvOverrides {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				c.Set(key, v)
			}
		}
	}
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
