package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/steelforge/llmbridge/backend"
	"github.com/steelforge/llmbridge/chatclient"
)

// fakeReply is an in-memory chatclient.ReplyHandle that records every edit.
type fakeReply struct {
	mu    sync.Mutex
	id    int64
	edits []string
}

func (r *fakeReply) Edit(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, text)
	return nil
}

func (r *fakeReply) MessageID() int64 { return r.id }

func (r *fakeReply) lastEdit() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.edits) == 0 {
		return ""
	}
	return r.edits[len(r.edits)-1]
}

// fakeChatClient is a minimal chatclient.Client for tests: a fixed own
// user id, canned channel history, and replies recorded via fakeReply.
type fakeChatClient struct {
	ownUserID int64
	history   []chatclient.Message
	nextReply int64
	replies   []*fakeReply
}

func (f *fakeChatClient) OwnUserID(ctx context.Context) (int64, error) { return f.ownUserID, nil }

func (f *fakeChatClient) FetchHistory(ctx context.Context, channelID string, limit int) ([]chatclient.Message, error) {
	if limit < len(f.history) {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func (f *fakeChatClient) Reply(ctx context.Context, channelID string, content string) (chatclient.ReplyHandle, error) {
	f.nextReply++
	r := &fakeReply{id: f.nextReply}
	r.edits = append(r.edits, content)
	f.replies = append(f.replies, r)
	return r, nil
}

// fakeBackend streams a fixed slice of chunk text through StreamChat, one
// per tick, to exercise the edit-cadence pipeline deterministically.
type fakeBackend struct {
	chunks   []string
	tick     time.Duration
	failWith error
}

func (f *fakeBackend) StreamChat(ctx context.Context, req backend.ChatRequest) (<-chan backend.Chunk, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make(chan backend.Chunk)
	go func() {
		defer close(out)
		for i, c := range f.chunks {
			if f.tick > 0 {
				time.Sleep(f.tick)
			}
			done := i == len(f.chunks)-1
			select {
			case out <- backend.Chunk{Text: c, Done: done}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeBackend) StreamGenerate(ctx context.Context, req backend.GenerateRequest) (<-chan backend.Chunk, error) {
	return f.StreamChat(ctx, backend.ChatRequest{Model: req.Model})
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]backend.InstalledModel, error) {
	return []backend.InstalledModel{{Name: "qwen3-8b:latest", ParameterSize: "8B", QuantizationLevel: "Q4"}}, nil
}

func (f *fakeBackend) ShowModel(ctx context.Context, name string) (backend.ModelInfo, error) {
	return backend.ModelInfo{ContextLength: 8192}, nil
}
