// Package config loads the hierarchical Sources/Sinks/Credentials/Pipes
// configuration tree, resolving the configuration path from the
// KINESISTAP_CONFIG_PATH environment variable.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

const configPathEnvVar = "KINESISTAP_CONFIG_PATH"

// Section is one named, typed entry under a top-level configuration
// section: a Sources/Sinks/Credentials/Pipes list member. Type is looked up
// case-insensitively against a factory Catalog; unknown tags fail at
// startup rather than silently no-op.
type Section struct {
	ID      string                 `yaml:"Id"`
	Type    string                 `yaml:"Type"`
	Options map[string]interface{} `yaml:",inline"`
}

// Tree is the top-level configuration document.
type Tree struct {
	Sources     []Section                `yaml:"Sources"`
	Sinks       []Section                `yaml:"Sinks"`
	Credentials []Section                `yaml:"Credentials"`
	Pipes       []Section                `yaml:"Pipes"`
	Metrics     []map[string]interface{} `yaml:"MetricDefinitions"`
}

// MetricDefinitions parses the tree's MetricDefinitions entries, in
// document order. An entry that fails to parse aborts the whole batch,
// since a malformed metric definition is a configuration error rather
// than something to silently drop at startup.
func (t *Tree) MetricDefinitions() ([]*MetricDefinition, error) {
	defs := make([]*MetricDefinition, 0, len(t.Metrics))
	for _, raw := range t.Metrics {
		def, err := ParseMetricDefinition(raw)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Load reads and parses the configuration tree. It first loads a .env file
// from the working directory if present (missing is not an error), then
// resolves the tree's path from KINESISTAP_CONFIG_PATH if explicitPath is
// empty.
func Load(explicitPath string) (*Tree, error) {
	_ = godotenv.Load()

	path := explicitPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv(configPathEnvVar))
	}
	if path == "" {
		return nil, agenterrors.Configuration(fmt.Sprintf("no configuration path given and %s is unset", configPathEnvVar), nil)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, agenterrors.Configuration("failed to read configuration file", err)
	}

	var tree Tree
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, agenterrors.Configuration("failed to parse configuration file", err)
	}

	if err := tree.validate(); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (t *Tree) validate() error {
	for _, group := range [][]Section{t.Sources, t.Sinks, t.Credentials, t.Pipes} {
		for _, s := range group {
			if strings.TrimSpace(s.ID) == "" {
				return agenterrors.Configuration("configuration entry missing required Id", nil)
			}
			if strings.TrimSpace(s.Type) == "" {
				return agenterrors.Configuration(fmt.Sprintf("configuration entry %q missing required Type", s.ID), nil)
			}
		}
	}
	return nil
}

// StringOption returns a string-valued option, or the default if absent.
func (s Section) StringOption(key, def string) string {
	if v, ok := s.Options[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// IntOption returns an int-valued option, or the default if absent or the
// wrong type. YAML decodes bare integers as int in this library.
func (s Section) IntOption(key string, def int) int {
	if v, ok := s.Options[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		}
	}
	return def
}
