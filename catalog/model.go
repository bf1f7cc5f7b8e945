// Package catalog resolves installed LLM backend models against configured
// ModelConfig entries and exposes lookup operations used by the respond
// path and the command adaptor.
package catalog

import "strings"

// ChatModel is one resolved catalogue entry: an installed backend model
// joined with its ModelConfig and effective context length.
type ChatModel struct {
	Name              string // full "name:tag" as reported by the backend
	BaseName          string
	Tag               string // empty if the model has no explicit tag
	ParameterSize     string
	QuantizationLevel string
	ContextLength     int64 // UnknownContextLength sentinel when unresolved
	Config            *ModelConfig
}

func (m ChatModel) String() string { return m.Name }

// SplitModelName splits a model name on its first ':' into (base, tag).
// "" and names with more than one colon are invalid and report ok=false.
// A name with no colon reports a valid base and an absent (empty) tag.
func SplitModelName(name string) (base, tag string, ok bool) {
	if name == "" {
		return "", "", false
	}
	parts := strings.Split(name, ":")
	switch len(parts) {
	case 1:
		return parts[0], "", true
	case 2:
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}
