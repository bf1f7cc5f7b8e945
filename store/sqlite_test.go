package store

import (
	"os"
	"testing"
	"time"

	"github.com/steelforge/llmbridge/model"
)

func TestSQLiteStore_PersistentSessionRoundTrip(t *testing.T) {
	tmpFile := "/tmp/llmbridge_test.db"
	defer os.Remove(tmpFile)

	st, err := NewSQLiteStore(tmpFile)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	session := model.NewPersistentSession(st, 1, "work", "qwen3-8b:latest", "")
	if err := session.SetSystemPrompt("P"); err != nil {
		t.Fatalf("SetSystemPrompt: %v", err)
	}

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	// Insert out of order: t2, t1, t3.
	for _, m := range []model.ChatMessage{
		{ID: 2, SenderID: 1, SenderNickname: "Alice", Timestamp: t2, Role: model.RoleUser, Content: "second"},
		{ID: 1, SenderID: 1, SenderNickname: "Alice", Timestamp: t1, Role: model.RoleUser, Content: "first"},
		{ID: 3, SenderID: 1, SenderNickname: "Alice", Timestamp: t3, Role: model.RoleAssistant, Content: "third"},
	} {
		if err := session.AddMessage(m); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	reloaded, found, err := st.Load(1, "work")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatalf("expected session to be found")
	}
	if reloaded.SystemPrompt() != "P" {
		t.Errorf("system prompt = %q, want %q", reloaded.SystemPrompt(), "P")
	}

	msgs := reloaded.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages (synthetic system + 3), got %d", len(msgs))
	}
	if msgs[0].Content != "P" || !msgs[0].IsSyntheticSystemMessage() {
		t.Errorf("message 0 should be the synthetic system message with content %q, got %+v", "P", msgs[0])
	}
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if got := msgs[i+1].Content; got != want {
			t.Errorf("message %d content = %q, want %q", i+1, got, want)
		}
	}
}

func TestSQLiteStore_SyncMessagesDeletesStale(t *testing.T) {
	st, err := NewSQLiteStore("")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	session := model.NewPersistentSession(st, 1, "s", "m", "")
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		if err := session.AddMessage(model.ChatMessage{ID: i, Timestamp: ts.Add(time.Duration(i) * time.Second), Role: model.RoleUser, Content: "x"}); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	// Drop message 2 from the in-memory list and re-sync directly.
	pruned := []model.ChatMessage{session.Messages()[0], session.Messages()[2]}
	if err := st.SyncMessages(1, "s", pruned); err != nil {
		t.Fatalf("SyncMessages: %v", err)
	}

	reloaded, found, err := st.Load(1, "s")
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if len(reloaded.Messages()) != 2 {
		t.Fatalf("expected 2 messages after sync, got %d", len(reloaded.Messages()))
	}
}

func TestSQLiteStore_ActiveSessionSwitch(t *testing.T) {
	st, err := NewSQLiteStore("")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	if err := st.MarkActive(1, "A"); err != nil {
		t.Fatalf("MarkActive(A): %v", err)
	}
	if err := st.MarkActive(1, "B"); err != nil {
		t.Fatalf("MarkActive(B): %v", err)
	}

	name, ok, err := st.GetActiveSession(1)
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if !ok || name != "B" {
		t.Errorf("active session = (%q, %v), want (\"B\", true)", name, ok)
	}
}

func TestSQLiteStore_DeleteCascades(t *testing.T) {
	st, err := NewSQLiteStore("")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	session := model.NewPersistentSession(st, 1, "gone", "m", "")
	if err := session.AddMessage(model.ChatMessage{ID: 1, Timestamp: time.Now().UTC(), Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := st.MarkActive(1, "gone"); err != nil {
		t.Fatalf("MarkActive: %v", err)
	}

	if err := st.Delete(1, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, found, err := st.Load(1, "gone"); err != nil || found {
		t.Fatalf("expected session gone after delete, found=%v err=%v", found, err)
	}
	if _, ok, err := st.GetActiveSession(1); err != nil || ok {
		t.Fatalf("expected active pointer cleared, ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStore_ListAllSessions(t *testing.T) {
	st, err := NewSQLiteStore("")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	alice := model.NewPersistentSession(st, 1, "work", "m", "")
	if err := alice.AddMessage(model.ChatMessage{ID: 1, Timestamp: time.Now().UTC(), Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := alice.AddMessage(model.ChatMessage{ID: 2, Timestamp: time.Now().UTC(), Role: model.RoleAssistant, Content: "hey"}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	bob := model.NewPersistentSession(st, 2, "play", "m", "")
	if err := bob.SetSystemPrompt("be brief"); err != nil {
		t.Fatalf("SetSystemPrompt: %v", err)
	}

	summaries, total, err := st.ListAllSessions(10, 0)
	if err != nil {
		t.Fatalf("ListAllSessions: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if summaries[0].OwnerID != 1 || summaries[0].Name != "work" || summaries[0].MessageCount != 2 {
		t.Errorf("summaries[0] = %+v", summaries[0])
	}
	if summaries[1].OwnerID != 2 || summaries[1].Name != "play" || summaries[1].MessageCount != 1 {
		t.Errorf("summaries[1] = %+v", summaries[1])
	}

	page, total, err := st.ListAllSessions(1, 1)
	if err != nil {
		t.Fatalf("ListAllSessions page 2: %v", err)
	}
	if total != 2 || len(page) != 1 || page[0].Name != "play" {
		t.Errorf("page 2 = %+v (total %d)", page, total)
	}
}
