package catalog

import (
	"fmt"

	"github.com/steelforge/llmbridge/backend"
	"github.com/tiktoken-go/tokenizer"
)

// Tokenizer is the handle bound to a ModelConfig. HasChatTemplate gates
// the raw/tokenized prompt path: a tokenizer with no chat-template support
// means the session always falls back to chat mode.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	HasChatTemplate() bool
	ApplyChatTemplate(messages []backend.Message) (string, error)
}

// TiktokenTokenizer adapts github.com/tiktoken-go/tokenizer's BPE codecs to
// the Tokenizer contract. tiktoken has no notion of a chat template, so
// HasChatTemplate always reports false here; raw mode is reachable only for
// a future Tokenizer implementation that can render one.
type TiktokenTokenizer struct {
	codec tokenizer.Codec
}

// NewTiktokenTokenizer resolves handle (e.g. "cl100k_base", "o200k_base")
// against tiktoken's built-in encodings.
func NewTiktokenTokenizer(handle string) (*TiktokenTokenizer, error) {
	codec, err := tokenizer.Get(tokenizer.Encoding(handle))
	if err != nil {
		return nil, fmt.Errorf("resolve tokenizer handle %q: %w", handle, err)
	}
	return &TiktokenTokenizer{codec: codec}, nil
}

func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}

func (t *TiktokenTokenizer) HasChatTemplate() bool { return false }

func (t *TiktokenTokenizer) ApplyChatTemplate([]backend.Message) (string, error) {
	return "", fmt.Errorf("tiktoken tokenizer does not support chat templates")
}
