package bridge

import (
	"context"
	"testing"
	"time"
)

func newTestBridge(t *testing.T) (*Bridge, *fakeChatClient) {
	t.Helper()
	be := &fakeBackend{}
	cat := newTestCatalog(t, be, "", "")
	st := newTestStore(t)
	chat := &fakeChatClient{ownUserID: 99}
	b := New(Config{AdminID: 1, BotPrefix: "$", EditDelay: time.Second, MaxMessagesForContext: 20}, st, cat, be, chat, nil)
	return b, chat
}

func TestDispatch_IgnoresNonCommands(t *testing.T) {
	b, _ := newTestBridge(t)
	_, ok, err := b.Dispatch(context.Background(), CommandRequest{Raw: "just chatting"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a non-command message")
	}
}

func TestDispatch_NewSessionAndListSessions(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	reply, ok, err := b.Dispatch(ctx, CommandRequest{OwnerID: 1, Raw: "$llm-new-session work"})
	if err != nil || !ok {
		t.Fatalf("new-session: reply=%q ok=%v err=%v", reply, ok, err)
	}

	reply, ok, err = b.Dispatch(ctx, CommandRequest{OwnerID: 1, Raw: "$llm-list-sessions"})
	if err != nil || !ok {
		t.Fatalf("list-sessions: reply=%q ok=%v err=%v", reply, ok, err)
	}
	if reply != "Sessions:\n- work" {
		t.Errorf("reply = %q", reply)
	}
}

func TestDispatch_MissingArgument(t *testing.T) {
	b, _ := newTestBridge(t)
	_, ok, err := b.Dispatch(context.Background(), CommandRequest{OwnerID: 1, Raw: "$llm-new-session"})
	if !ok {
		t.Fatal("expected ok=true: a recognized command with a bad argument is still handled")
	}
	if err == nil {
		t.Error("expected an ArgumentMissingError")
	}
}

func TestDispatch_Respond(t *testing.T) {
	b, chat := newTestBridge(t)
	b.be = &fakeBackend{chunks: []string{"hi"}}
	// rebuild the catalog bound to the same fakeBackend instance used above
	b.cat = newTestCatalog(t, b.be.(*fakeBackend), "", "")

	reply, ok, err := b.Dispatch(context.Background(), CommandRequest{
		ChannelID: "1", OwnerID: 1, SenderID: 1, SenderNickname: "Alice", Raw: "$llm hello",
	})
	if err != nil || !ok {
		t.Fatalf("reply=%q ok=%v err=%v", reply, ok, err)
	}
	if len(chat.replies) != 1 {
		t.Fatalf("expected a reply to have been posted, got %d", len(chat.replies))
	}
}
