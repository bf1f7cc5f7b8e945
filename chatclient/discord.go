package chatclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/steelforge/llmbridge/model"
)

// DiscordClient is the concrete Client binding over discordgo. It is the
// thinnest possible adapter: no retry/backoff policy, no rate-limit
// handling beyond what discordgo itself does. The bridge's job is the
// conversation/streaming core, not a hardened Discord client.
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient opens a session authenticated with apiKey and enables
// the message-content intent, without which message text is invisible.
func NewDiscordClient(apiKey string) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + apiKey)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("open discord session: %w", err)
	}
	return &DiscordClient{session: session}, nil
}

// Close closes the underlying discordgo session.
func (c *DiscordClient) Close() error { return c.session.Close() }

// Session exposes the underlying discordgo.Session so the command adaptor
// can register its own message-create handler.
func (c *DiscordClient) Session() *discordgo.Session { return c.session }

func (c *DiscordClient) OwnUserID(ctx context.Context) (int64, error) {
	if c.session.State == nil || c.session.State.User == nil {
		return 0, fmt.Errorf("discord session not ready: no own user in state")
	}
	return parseSnowflake(c.session.State.User.ID)
}

func (c *DiscordClient) FetchHistory(ctx context.Context, channelID string, limit int) ([]Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		converted, err := convertMessage(m)
		if err != nil {
			continue
		}
		out = append(out, converted)
	}
	return out, nil
}

func (c *DiscordClient) Reply(ctx context.Context, channelID string, content string) (ReplyHandle, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return nil, fmt.Errorf("post reply: %w", err)
	}
	return &discordReplyHandle{session: c.session, channelID: channelID, messageID: msg.ID}, nil
}

// discordReplyHandle implements streaming.ReplyEditor (and ReplyHandle)
// over a single posted message.
type discordReplyHandle struct {
	session   *discordgo.Session
	channelID string
	messageID string
}

func (h *discordReplyHandle) Edit(ctx context.Context, text string) error {
	_, err := h.session.ChannelMessageEdit(h.channelID, h.messageID, text)
	if err != nil {
		return fmt.Errorf("edit reply: %w", err)
	}
	return nil
}

func (h *discordReplyHandle) MessageID() int64 {
	id, err := parseSnowflake(h.messageID)
	if err != nil {
		return 0
	}
	return id
}

func convertMessage(m *discordgo.Message) (Message, error) {
	id, err := parseSnowflake(m.ID)
	if err != nil {
		return Message{}, err
	}
	senderID, err := parseSnowflake(m.Author.ID)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:             id,
		ChannelID:      m.ChannelID,
		SenderID:       senderID,
		SenderNickname: nicknameOf(m.Author),
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		Mentions:       convertMentions(m.Mentions),
	}, nil
}

func nicknameOf(u *discordgo.User) string {
	if u == nil {
		return "Unknown user"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func convertMentions(users []*discordgo.User) []model.Mention {
	out := make([]model.Mention, 0, len(users))
	for _, u := range users {
		id, err := parseSnowflake(u.ID)
		if err != nil {
			continue
		}
		out = append(out, model.Mention{ID: id, Name: nicknameOf(u)})
	}
	return out
}

func parseSnowflake(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse discord snowflake %q: %w", id, err)
	}
	return n, nil
}
