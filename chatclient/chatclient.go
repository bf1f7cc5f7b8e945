// Package chatclient is the chat-platform boundary contract: the
// bridge's core talks to the chat platform only through this interface, so
// the respond path and streaming pipeline are testable against a fake.
// discord.go supplies the one concrete binding, over discordgo.
package chatclient

import (
	"context"
	"time"

	"github.com/steelforge/llmbridge/model"
)

// Message is one chat-platform message as seen by the bridge: enough to
// build a model.ChatMessage or a model.HistoryEvent from it.
type Message struct {
	ID             int64
	ChannelID      string
	SenderID       int64
	SenderNickname string
	Content        string
	Timestamp      time.Time
	Mentions       []model.Mention
}

// ReplyHandle is a single in-flight reply message: the placeholder the
// streaming pipeline progressively edits. It satisfies streaming.ReplyEditor.
type ReplyHandle interface {
	Edit(ctx context.Context, text string) error

	// MessageID is the reply's own chat-platform message id, reused as the
	// id of the assistant's ChatMessage once the stream completes.
	MessageID() int64
}

// Client is the chat-platform collaborator's contract.
type Client interface {
	// OwnUserID returns the bot's own identity, resolved after login, used
	// to tag historical messages as assistant vs user.
	OwnUserID(ctx context.Context) (int64, error)

	// FetchHistory pulls up to limit of the most recent messages in
	// channelID, newest first (the temporary-session path pulls the last N,
	// reverses them and drops the triggering message).
	FetchHistory(ctx context.Context, channelID string, limit int) ([]Message, error)

	// Reply posts a new message in channelID and returns a handle for
	// subsequent edits.
	Reply(ctx context.Context, channelID string, content string) (ReplyHandle, error)
}
