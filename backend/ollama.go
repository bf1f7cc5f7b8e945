package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/ollama/ollama/api"

	"github.com/steelforge/llmbridge/bridgeerr"
)

// OllamaBackend is the concrete Backend binding over the ollama client
// library. It is intentionally thin: no retry policy, no connection
// pooling beyond what api.Client already does.
type OllamaBackend struct {
	client *api.Client
}

// NewOllamaBackend builds a backend bound to the given base URL. An empty
// baseURL uses ollama's own environment-derived default.
func NewOllamaBackend(baseURL string) (*OllamaBackend, error) {
	if baseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		return &OllamaBackend{client: client}, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	return &OllamaBackend{client: api.NewClient(u, nil)}, nil
}

func boolPtr(b bool) *bool { return &b }

func (o *OllamaBackend) StreamChat(ctx context.Context, req ChatRequest) (<-chan Chunk, error) {
	apiMessages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		apiMessages = append(apiMessages, api.Message{Role: m.Role, Content: m.Content})
	}
	apiReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: apiMessages,
		Stream:   boolPtr(true),
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		err := o.client.Chat(ctx, apiReq, func(resp api.ChatResponse) error {
			select {
			case out <- Chunk{Text: resp.Message.Content, Done: resp.Done}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			emitErr(ctx, out, classifyError(err))
		}
	}()
	return out, nil
}

func (o *OllamaBackend) StreamGenerate(ctx context.Context, req GenerateRequest) (<-chan Chunk, error) {
	apiReq := &api.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Raw:    req.Raw,
		Stream: boolPtr(true),
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		err := o.client.Generate(ctx, apiReq, func(resp api.GenerateResponse) error {
			select {
			case out <- Chunk{Text: resp.Response, Done: resp.Done}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			emitErr(ctx, out, classifyError(err))
		}
	}()
	return out, nil
}

func emitErr(ctx context.Context, out chan<- Chunk, err error) {
	select {
	case out <- Chunk{Err: err}:
	case <-ctx.Done():
	}
}

func (o *OllamaBackend) ListModels(ctx context.Context) ([]InstalledModel, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	models := make([]InstalledModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, InstalledModel{
			Name:              m.Name,
			Size:              m.Size,
			ParameterSize:     m.Details.ParameterSize,
			QuantizationLevel: m.Details.QuantizationLevel,
		})
	}
	return models, nil
}

func (o *OllamaBackend) ShowModel(ctx context.Context, name string) (ModelInfo, error) {
	resp, err := o.client.Show(ctx, &api.ShowRequest{Model: name})
	if err != nil {
		return ModelInfo{}, classifyError(err)
	}
	return ModelInfo{ContextLength: findContextLength(resp.ModelInfo)}, nil
}

// findContextLength returns the value of a modelinfo key ending in
// "context_length". If several keys match, which one is used is not
// defined (map iteration order).
func findContextLength(info map[string]any) int64 {
	for key, value := range info {
		if !strings.HasSuffix(key, "context_length") {
			continue
		}
		switch v := value.(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		case int:
			return int64(v)
		}
	}
	return UnknownContextLength
}

// classifyError maps a transport-level failure to BackendUnavailable when it
// looks like a connection problem, else BackendError with the raw detail.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return bridgeerr.ErrBackendUnavailable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return bridgeerr.ErrBackendUnavailable
	}
	return &bridgeerr.BackendErrorDetail{Detail: err.Error()}
}
