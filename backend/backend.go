// Package backend is the LLM backend boundary contract: streaming
// chat/generate calls plus model inventory. The bridge's core never talks
// to ollama directly, only through this interface, so the streaming
// pipeline and command adaptor are testable against a fake.
package backend

import "context"

// Message is one {role, content} turn sent to the backend in chat mode.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is the chat-mode call.
type ChatRequest struct {
	Model    string
	Messages []Message
}

// GenerateRequest is the raw-mode call: a pre-rendered prompt,
// already passed through the tokenizer's chat template.
type GenerateRequest struct {
	Model  string
	Prompt string
	Raw    bool
}

// Chunk is one element of a streaming response. Text is chunk.message.content
// in chat mode or chunk.response in raw mode. Err is set on the final
// chunk if the stream ended in failure; Done is set on the final chunk of a
// successful stream.
type Chunk struct {
	Text string
	Done bool
	Err  error
}

// InstalledModel is one entry from the backend's model inventory.
type InstalledModel struct {
	Name              string
	Size              int64
	ParameterSize     string
	QuantizationLevel string
}

// ModelInfo is the subset of show(name) the catalogue needs: a context
// length read from whichever key in modelinfo ends in "context_length".
// ContextLength is the UnknownContextLength sentinel if no such key exists.
type ModelInfo struct {
	ContextLength int64
}

// UnknownContextLength is returned when no modelinfo key ends in
// "context_length".
const UnknownContextLength int64 = -1

// Backend is the external LLM collaborator's contract.
type Backend interface {
	// StreamChat issues a chat-mode streaming call. The returned channel is
	// closed after its final Chunk (which carries Done or Err).
	StreamChat(ctx context.Context, req ChatRequest) (<-chan Chunk, error)

	// StreamGenerate issues a raw-mode streaming call.
	StreamGenerate(ctx context.Context, req GenerateRequest) (<-chan Chunk, error)

	// ListModels returns the backend's installed models.
	ListModels(ctx context.Context) ([]InstalledModel, error)

	// ShowModel returns model metadata for a single installed model.
	ShowModel(ctx context.Context, name string) (ModelInfo, error)
}
