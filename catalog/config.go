package catalog

// ModelConfig is the per-model configuration bound by name-prefix: thinking
// tags, tokenizer handle, optional context-length override.
type ModelConfig struct {
	ThinkingPrefix string
	ThinkingSuffix string
	Tokenizer      Tokenizer
	ContextLimit   *int64 // nil when unset
}

// HasThinkingTags reports whether this config defines a thinking-segment
// tag pair: it reports true only when both tags are set.
func (c *ModelConfig) HasThinkingTags() bool {
	return c != nil && c.ThinkingPrefix != "" && c.ThinkingSuffix != ""
}

// PrefixConfig binds a ModelConfig to the configured key it was declared
// under, in file order. The key is matched as a prefix of a full model name.
type PrefixConfig struct {
	Prefix string
	Config *ModelConfig
}
