package config

import "sort"

// DecorationTemplates extracts a pipe's "decoration" option, if configured:
// a map of output field name to "...${expr}..." template, applied to every
// record the pipe forwards before any sink sees it. Keys are returned
// sorted since YAML's generic map decoding does not preserve declaration
// order, and evaluation order has no observable effect between distinct
// output fields.
func (s Section) DecorationTemplates() (keys []string, templates map[string]string) {
	raw, ok := s.Options["decoration"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	templates = make(map[string]string, len(raw))
	for k, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		templates[k] = str
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, templates
}

// StringMapOption reads a nested string-to-string option, e.g. a pipe's
// "globals" section feeding the decoration evaluation context's global
// resolver.
func (s Section) StringMapOption(key string) map[string]string {
	raw, ok := s.Options[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}
	return out
}
