package config

import (
	"encoding/json"

	"github.com/PaesslerAG/jsonpath"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

// Query evaluates a JSONPath expression (e.g. "$.Sinks[?(@.Id=='primary')].Type")
// against the loaded configuration tree, letting operators and the agentctl
// CLI inspect a running configuration without re-deriving its shape by
// hand. The tree is round-tripped through JSON first since jsonpath expects
// plain maps/slices, not the typed Tree/Section structs.
func Query(tree *Tree, expr string) (interface{}, error) {
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, agenterrors.Configuration("failed to marshal configuration for query", err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, agenterrors.Configuration("failed to decode configuration for query", err)
	}

	result, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, agenterrors.Configuration("invalid jsonpath expression", err)
	}
	return result, nil
}
