package streaming

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/steelforge/llmbridge/backend"
	"github.com/steelforge/llmbridge/catalog"
)

type fakeEditor struct {
	mu    sync.Mutex
	edits []string
}

func (f *fakeEditor) Edit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeEditor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeEditor) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return ""
	}
	return f.edits[len(f.edits)-1]
}

func TestRun_FreshRespondScenario(t *testing.T) {
	chunks := make(chan backend.Chunk, 8)
	for _, text := range []string{"<think>", "pondering", "</think>", "Hello", "!"} {
		chunks <- backend.Chunk{Text: text}
	}
	chunks <- backend.Chunk{Done: true}
	close(chunks)

	editor := &fakeEditor{}
	cfg := &catalog.ModelConfig{ThinkingPrefix: "<think>", ThinkingSuffix: "</think>"}

	result, err := Run(context.Background(), chunks, editor, time.Hour, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Content != "Hello!" || result.Thoughts != "pondering" {
		t.Errorf("result = %+v", result)
	}
	if got, want := editor.last(), "*pondering*\n\nHello!"; got != want {
		t.Errorf("final edit = %q, want %q", got, want)
	}
}

func TestRun_EditCadenceIsRateLimited(t *testing.T) {
	chunks := make(chan backend.Chunk)
	editor := &fakeEditor{}

	go func() {
		deadline := time.Now().Add(2300 * time.Millisecond)
		for time.Now().Before(deadline) {
			chunks <- backend.Chunk{Text: "x"}
			time.Sleep(100 * time.Millisecond)
		}
		chunks <- backend.Chunk{Done: true}
		close(chunks)
	}()

	_, err := Run(context.Background(), chunks, editor, 500*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// ceil(2.3s / 0.5s) = 5 periodic edits, plus exactly one final edit.
	if n := editor.count(); n > 6 {
		t.Errorf("got %d edits, want at most 6 (5 periodic + 1 final)", n)
	}
}

func TestRun_BackendErrorStopsWithoutFinalEdit(t *testing.T) {
	chunks := make(chan backend.Chunk, 2)
	chunks <- backend.Chunk{Text: "partial"}
	chunks <- backend.Chunk{Err: errBoom}
	close(chunks)

	editor := &fakeEditor{}
	_, err := Run(context.Background(), chunks, editor, time.Hour, nil)
	if err != errBoom {
		t.Fatalf("Run() err = %v, want errBoom", err)
	}
}

func TestRenderTruncated_TruncatesContentNotThoughts(t *testing.T) {
	p := NewThinkingParser("<think>", "</think>")
	p.Append("<think>short thought</think>")
	longContent := make([]byte, MaxMessageLength+200)
	for i := range longContent {
		longContent[i] = 'a'
	}
	p.Append(string(longContent))

	rendered := RenderTruncated(p)
	if len([]rune(rendered)) > MaxMessageLength {
		t.Errorf("rendered length %d exceeds limit %d", len([]rune(rendered)), MaxMessageLength)
	}
	if !strings.Contains(rendered, "short thought") || !strings.Contains(rendered, truncationMarker) {
		t.Errorf("expected thoughts preserved and truncation marker present, got %q", rendered)
	}
}

var errBoom = fakeBackendError("boom")

type fakeBackendError string

func (e fakeBackendError) Error() string { return string(e) }
