package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/steelforge/llmbridge/backend"
	"github.com/steelforge/llmbridge/bridgeerr"
	"github.com/steelforge/llmbridge/catalog"
	"github.com/steelforge/llmbridge/chatclient"
	"github.com/steelforge/llmbridge/model"
	"github.com/steelforge/llmbridge/streaming"
)

const (
	placeholderStarting  = "*Starting up...*"
	placeholderHistory   = "*Reading chat history...*"
	placeholderModelCall = "*Processing messages...*"
)

var llmBackendUnavailableMessage = "The LLM backend is currently unavailable, try again later."

// RespondRequest is the inbound $llm invocation.
type RespondRequest struct {
	ChannelID      string
	MessageID      int64
	OwnerID        int64
	SenderID       int64
	SenderNickname string
	Prompt         string
	Mentions       []model.Mention
}

// Respond drives the full respond path: resolve or construct the session,
// append the prompt, validate the model, stream the backend call, and
// persist the assistant's final turn. Each invocation is an independent
// task; the generated task id correlates its log lines across concurrent
// runs.
func (b *Bridge) Respond(ctx context.Context, req RespondRequest) error {
	taskID := uuid.NewString()
	b.logger.Debugf("respond %s: owner %d in channel %s", taskID, req.OwnerID, req.ChannelID)

	reply, err := b.chat.Reply(ctx, req.ChannelID, placeholderStarting)
	if err != nil {
		return fmt.Errorf("post placeholder reply: %w", err)
	}

	session, err := b.resolveSession(ctx, req, reply)
	if err != nil {
		return err
	}

	prompt := model.RewriteMentions(req.Prompt, req.Mentions)
	if err := session.AddMessage(model.ChatMessage{
		ID:             req.MessageID,
		SenderID:       req.SenderID,
		SenderNickname: req.SenderNickname,
		Role:           model.RoleUser,
		Content:        prompt,
	}); err != nil {
		return err
	}

	chatModel, ok := b.cat.Get(session.Model())
	if !ok {
		_ = reply.Edit(ctx, modelUnavailableMessage(session.Name(), session.Model(), b.Config.AdminID))
		return &bridgeerr.ModelUnavailableError{Session: session.Name(), Model: session.Model(), AdminID: b.Config.AdminID}
	}

	if err := reply.Edit(ctx, placeholderModelCall); err != nil {
		return err
	}

	chunks, err := b.invokeBackend(ctx, session, chatModel)
	if err != nil {
		if isBackendUnavailable(err) {
			_ = reply.Edit(ctx, llmBackendUnavailableMessage)
		} else {
			_ = reply.Edit(ctx, fmt.Sprintf("Oops, an unknown error has happened: %s", err))
		}
		return err
	}

	result, runErr := streaming.Run(ctx, chunks, reply, b.Config.EditDelay, chatModel.Config)
	if runErr != nil {
		b.logger.Errorf("respond %s: stream failed: %v", taskID, runErr)
		if isBackendUnavailable(runErr) {
			_ = reply.Edit(ctx, llmBackendUnavailableMessage)
		}
		// Cancellation or a mid-stream backend error: leave the placeholder
		// with its last rendered content and do not persist a partial
		// assistant turn.
		return runErr
	}

	b.logger.Debugf("respond %s: session %q done, %d content chars", taskID, session.Name(), len(result.Content))
	return session.AddMessage(model.ChatMessage{
		ID:             reply.MessageID(),
		SenderID:       -1,
		SenderNickname: "assistant",
		Role:           model.RoleAssistant,
		Content:        result.Content,
	})
}

func modelUnavailableMessage(sessionName, modelName string, adminID int64) string {
	return fmt.Sprintf("Session %q references model %q, which is no longer installed. <@%d>", sessionName, modelName, adminID)
}

func isBackendUnavailable(err error) bool {
	return errors.Is(err, bridgeerr.ErrBackendUnavailable)
}

// resolveSession returns ownerID's active persistent session if one exists,
// else constructs a temporary one from the channel's recent history,
// editing reply to placeholderHistory while doing so.
func (b *Bridge) resolveSession(ctx context.Context, req RespondRequest, reply chatclient.ReplyHandle) (*model.Session, error) {
	activeName, hasActive, err := b.store.GetActiveSession(req.OwnerID)
	if err != nil {
		return nil, err
	}
	if hasActive {
		session, found, err := b.loadPersistent(req.OwnerID, activeName)
		if err != nil {
			return nil, err
		}
		if found {
			return session, nil
		}
	}

	if err := reply.Edit(ctx, placeholderHistory); err != nil {
		return nil, err
	}

	botUserID, err := b.chat.OwnUserID(ctx)
	if err != nil {
		return nil, err
	}

	limit := b.Config.MaxMessagesForContext + 1
	history, err := b.chat.FetchHistory(ctx, req.ChannelID, limit)
	if err != nil {
		return nil, err
	}

	events := make([]model.HistoryEvent, 0, len(history))
	for _, m := range history {
		events = append(events, model.HistoryEvent{
			MessageID:      m.ID,
			SenderID:       m.SenderID,
			SenderNickname: m.SenderNickname,
			Timestamp:      m.Timestamp,
			Content:        m.Content,
			Mentions:       m.Mentions,
		})
	}
	events = reverseAndDropTriggering(events)

	return model.BuildTemporarySession(b.Config.AdminID, req.ChannelID, b.cat.DefaultModel(), b.Config.DefaultSystemPrompt, botUserID, events), nil
}

// reverseAndDropTriggering reverses history (chat-platform history arrives
// newest-first) into chronological order and drops the newest entry, which
// is the message that triggered the respond call; it is appended
// separately once the session is resolved.
func reverseAndDropTriggering(history []model.HistoryEvent) []model.HistoryEvent {
	if len(history) == 0 {
		return history
	}
	out := make([]model.HistoryEvent, 0, len(history)-1)
	for i := len(history) - 1; i >= 1; i-- {
		out = append(out, history[i])
	}
	return out
}

// invokeBackend issues the chat-mode or raw-mode streaming call depending on
// whether the model's tokenizer exposes a chat template. In raw mode the
// rendered prompt is tokenized so a warning is logged when a session
// reaches its model's context length; enforcement is left to the backend.
func (b *Bridge) invokeBackend(ctx context.Context, session *model.Session, chatModel catalog.ChatModel) (<-chan backend.Chunk, error) {
	messages := session.Messages()

	if chatModel.Config != nil && chatModel.Config.Tokenizer != nil && chatModel.Config.Tokenizer.HasChatTemplate() {
		backendMessages := toBackendMessages(messages)
		prompt, err := chatModel.Config.Tokenizer.ApplyChatTemplate(backendMessages)
		if err == nil {
			if ids, encErr := chatModel.Config.Tokenizer.Encode(prompt); encErr == nil {
				if chatModel.ContextLength > 0 && int64(len(ids)) >= chatModel.ContextLength {
					b.logger.Warnf("session %q prompt is %d tokens, at or above model %q context length %d",
						session.Name(), len(ids), chatModel.Name, chatModel.ContextLength)
				}
			}
			return b.be.StreamGenerate(ctx, backend.GenerateRequest{Model: chatModel.Name, Prompt: prompt, Raw: true})
		}
	}

	return b.be.StreamChat(ctx, backend.ChatRequest{Model: chatModel.Name, Messages: toBackendMessages(messages)})
}

func toBackendMessages(messages []model.ChatMessage) []backend.Message {
	out := make([]backend.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, backend.Message{Role: string(m.Role), Content: m.String()})
	}
	return out
}
