package bridge

import (
	"fmt"

	"github.com/steelforge/llmbridge/bridgeerr"
	"github.com/steelforge/llmbridge/model"
)

// NewSession creates a persistent session for ownerID with the default
// model and default system prompt, and marks it active
// ($llm-new-session).
func (b *Bridge) NewSession(ownerID int64, name string) error {
	exists, err := b.store.SessionExists(ownerID, name)
	if err != nil {
		return err
	}
	if exists {
		return &bridgeerr.SessionAlreadyExistsError{Name: name}
	}

	session := model.NewPersistentSession(b.store, ownerID, name, b.cat.DefaultModel(), b.Config.DefaultSystemPrompt)
	if err := session.SetSystemPrompt(b.Config.DefaultSystemPrompt); err != nil {
		return err
	}
	if err := b.store.MarkActive(ownerID, name); err != nil {
		return err
	}
	b.cache.put(ownerID, name, session)
	return nil
}

// ListSessions returns the session names owned by ownerID
// ($llm-list-sessions).
func (b *Bridge) ListSessions(ownerID int64) ([]string, error) {
	return b.store.ListSessionNames(ownerID)
}

// ChangeSession marks name active for ownerID if it exists, else fails
// ($llm-change-session).
func (b *Bridge) ChangeSession(ownerID int64, name string) error {
	exists, err := b.store.SessionExists(ownerID, name)
	if err != nil {
		return err
	}
	if !exists {
		return &bridgeerr.SessionNotFoundError{Name: name}
	}
	return b.store.MarkActive(ownerID, name)
}

// RemoveSession deletes name (cascading messages and any active-session
// pointer) and evicts it from the process cache ($llm-remove-session).
func (b *Bridge) RemoveSession(ownerID int64, name string) error {
	exists, err := b.store.SessionExists(ownerID, name)
	if err != nil {
		return err
	}
	if !exists {
		return &bridgeerr.SessionNotFoundError{Name: name}
	}
	if err := b.store.Delete(ownerID, name); err != nil {
		return err
	}
	b.cache.evict(ownerID, name)
	return nil
}

// SessionSize is the result of $llm-get-session-size.
type SessionSize struct {
	MessageCount  int
	EstimatedSize int64
	UsedTokenizer bool
}

// GetSessionSize returns the message count and estimated context length for
// name ($llm-get-session-size). When the session's model has a
// tokenizer, the authoritative length is len(tokenizer.encode(rendered
// prompt)); otherwise the word/special-char estimator is used.
func (b *Bridge) GetSessionSize(ownerID int64, name string) (SessionSize, error) {
	session, found, err := b.loadPersistent(ownerID, name)
	if err != nil {
		return SessionSize{}, err
	}
	if !found {
		return SessionSize{}, &bridgeerr.SessionNotFoundError{Name: name}
	}

	messages := session.Messages()
	size := SessionSize{MessageCount: len(messages)}

	if chatModel, ok := b.cat.Get(session.Model()); ok && chatModel.Config != nil && chatModel.Config.Tokenizer != nil {
		rendered := renderChatPrompt(messages)
		if ids, err := chatModel.Config.Tokenizer.Encode(rendered); err == nil {
			size.EstimatedSize = int64(len(ids))
			size.UsedTokenizer = true
			return size, nil
		}
	}

	size.EstimatedSize = int64(model.EstimateLength(messages))
	return size, nil
}

func renderChatPrompt(messages []model.ChatMessage) string {
	out := ""
	for _, m := range messages {
		out += m.String() + "\n"
	}
	return out
}

// SetSystemPrompt updates the active session's system prompt
// ($llm-set-system-prompt).
func (b *Bridge) SetSystemPrompt(ownerID int64, prompt string) error {
	name, ok, err := b.store.GetActiveSession(ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return &bridgeerr.SessionNotFoundError{Name: "<active>"}
	}
	session, found, err := b.loadPersistent(ownerID, name)
	if err != nil {
		return err
	}
	if !found {
		return &bridgeerr.SessionNotFoundError{Name: name}
	}
	return session.SetSystemPrompt(prompt)
}

// SetSessionModel changes name's model, validating it against the
// catalogue first ($llm-set-session-model). A bare model name with no
// exact match is retried with the configured default tag appended.
func (b *Bridge) SetSessionModel(ownerID int64, name, requestedModel string) error {
	session, found, err := b.loadPersistent(ownerID, name)
	if err != nil {
		return err
	}
	if !found {
		return &bridgeerr.SessionNotFoundError{Name: name}
	}

	resolved, ok := b.cat.ResolveModelName(requestedModel)
	if !ok {
		return &bridgeerr.ModelUnavailableError{Session: name, Model: requestedModel, AdminID: b.Config.AdminID}
	}
	return session.SetModel(resolved)
}

// ListModels formats the catalogue for $llm-list-models, one
// "- **name:tag**" bullet per entry.
func (b *Bridge) ListModels() string {
	models := b.cat.List()
	out := "# Available models:\n"
	for _, m := range models {
		ctx := "Unknown"
		if m.ContextLength >= 0 {
			ctx = fmt.Sprintf("%d", m.ContextLength)
		}
		out += fmt.Sprintf("- **%s** - %s params, %s quantization, %s context length\n", m.Name, m.ParameterSize, m.QuantizationLevel, ctx)
	}
	return out
}
