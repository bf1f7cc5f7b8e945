package bridge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/steelforge/llmbridge/catalog"
	"github.com/steelforge/llmbridge/model"
	"github.com/steelforge/llmbridge/store"
)

func newTestCatalog(t *testing.T, be *fakeBackend, thinkingPrefix, thinkingSuffix string) *catalog.Catalog {
	t.Helper()
	cfg := &catalog.ModelConfig{ThinkingPrefix: thinkingPrefix, ThinkingSuffix: thinkingSuffix}
	cat := catalog.New(be, []catalog.PrefixConfig{{Prefix: "qwen3-8b", Config: cfg}}, "qwen3-8b:latest", "latest", nil)
	if err := cat.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return cat
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore("")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// Alice posts with no active session, the bot builds Temp-42 from
// (empty) history, and the stream's thinking/content chunks render as
// "*pondering*\n\nHello!".
func TestRespond_FreshNoSession(t *testing.T) {
	be := &fakeBackend{chunks: []string{"<think>", "pondering", "</think>", "Hello", "!"}}
	cat := newTestCatalog(t, be, "<think>", "</think>")
	st := newTestStore(t)
	chat := &fakeChatClient{ownUserID: 99}

	b := New(Config{AdminID: 1, EditDelay: 500 * time.Millisecond, MaxMessagesForContext: 20}, st, cat, be, chat, nil)

	err := b.Respond(context.Background(), RespondRequest{
		ChannelID:      "42",
		MessageID:      1001,
		OwnerID:        1,
		SenderID:       1,
		SenderNickname: "Alice",
		Prompt:         "hi",
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if len(chat.replies) != 1 {
		t.Fatalf("expected exactly one reply message, got %d", len(chat.replies))
	}
	got := chat.replies[0].lastEdit()
	want := "*pondering*\n\nHello!"
	if got != want {
		t.Errorf("final placeholder content = %q, want %q", got, want)
	}
}

// The stream yields only a started-but-unterminated thinking segment.
func TestRespond_ThinkingOnly(t *testing.T) {
	be := &fakeBackend{chunks: []string{"<think>still thinking"}}
	cat := newTestCatalog(t, be, "<think>", "</think>")
	st := newTestStore(t)
	chat := &fakeChatClient{ownUserID: 99}

	b := New(Config{AdminID: 1, EditDelay: 0, MaxMessagesForContext: 20}, st, cat, be, chat, nil)

	err := b.Respond(context.Background(), RespondRequest{
		ChannelID: "7", MessageID: 1, OwnerID: 1, SenderID: 1, SenderNickname: "Alice", Prompt: "hi",
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	got := chat.replies[0].lastEdit()
	want := "*still thinking*"
	if got != want {
		t.Errorf("final content = %q, want %q", got, want)
	}
}

// The session references a model the catalogue doesn't have, so the
// placeholder is edited with an admin ping and the backend is never invoked.
func TestRespond_ModelUnavailable(t *testing.T) {
	be := &fakeBackend{chunks: []string{"should not be used"}}
	cat := newTestCatalog(t, be, "", "")
	st := newTestStore(t)
	chat := &fakeChatClient{ownUserID: 99}

	b := New(Config{AdminID: 777, EditDelay: time.Second, MaxMessagesForContext: 20}, st, cat, be, chat, nil)

	if err := b.NewSession(1, "work"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	// Force the session onto an uninstalled model directly on the cached
	// instance, bypassing SetSessionModel's own catalogue validation.
	session, ok := b.cache.get(1, "work")
	if !ok {
		t.Fatal("expected NewSession to have cached the session")
	}
	if err := session.SetModel("llama-xx:latest"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}

	err := b.Respond(context.Background(), RespondRequest{
		ChannelID: "7", MessageID: 1, OwnerID: 1, SenderID: 1, SenderNickname: "Alice", Prompt: "hi",
	})
	if err == nil {
		t.Fatal("expected ModelUnavailableError")
	}

	got := chat.replies[0].lastEdit()
	if !strings.Contains(got, "<@777>") {
		t.Errorf("expected admin ping in %q", got)
	}
}

func TestGetSessionSize_FallsBackToEstimator(t *testing.T) {
	be := &fakeBackend{}
	cat := newTestCatalog(t, be, "", "")
	st := newTestStore(t)
	chat := &fakeChatClient{ownUserID: 99}
	b := New(Config{AdminID: 1, EditDelay: time.Second, MaxMessagesForContext: 20}, st, cat, be, chat, nil)

	if err := b.NewSession(1, "s"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session, _, err := b.loadPersistent(1, "s")
	if err != nil {
		t.Fatalf("loadPersistent: %v", err)
	}
	if err := session.AddMessage(model.ChatMessage{SenderNickname: "Alice", Role: model.RoleUser, Content: "hello there"}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	size, err := b.GetSessionSize(1, "s")
	if err != nil {
		t.Fatalf("GetSessionSize: %v", err)
	}
	if size.UsedTokenizer {
		t.Error("expected estimator fallback, not a tokenizer")
	}
	if size.EstimatedSize <= 0 {
		t.Errorf("EstimatedSize = %d, want > 0", size.EstimatedSize)
	}
}
