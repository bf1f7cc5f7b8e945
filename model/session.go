package model

import (
	"fmt"
	"sort"
	"time"
)

// SessionStore is the persistence contract a Session uses to make its
// mutations durable. It is deliberately narrow: a Session never reaches
// into a full store API, only the two operations its own mutations need.
// An in-memory (temporary) session is given a nil SessionStore and every
// persist call becomes a no-op, per the "one-shot builder, never
// registered" rule for temporary sessions.
type SessionStore interface {
	SaveSessionInfo(ownerID int64, name, model, systemPrompt string) error
	SyncMessages(ownerID int64, name string, messages []ChatMessage) error
}

// Session is the single ChatSession implementation for both persistent and
// temporary sessions; the only difference between the two flavors is
// whether a SessionStore is attached. Mutator methods take no store
// parameter because the Session already holds a reference to the one it
// was constructed with, keeping call sites free of plumbing while still
// making the I/O an explicit method on the session rather than a hidden
// property setter.
type Session struct {
	ownerID      int64
	name         string
	model        string
	systemPrompt string
	messages     []ChatMessage
	store        SessionStore
}

// NewPersistentSession builds a session backed by store. Every mutation is
// synchronously persisted.
func NewPersistentSession(store SessionStore, ownerID int64, name, model, systemPrompt string) *Session {
	return &Session{
		ownerID:      ownerID,
		name:         name,
		model:        model,
		systemPrompt: systemPrompt,
		store:        store,
	}
}

// NewInMemorySession builds a session with no backing store; mutations never
// hit storage. Used for the temporary-session path.
func NewInMemorySession(ownerID int64, name, model, systemPrompt string) *Session {
	return &Session{
		ownerID:      ownerID,
		name:         name,
		model:        model,
		systemPrompt: systemPrompt,
	}
}

// HydrateMessages replaces the session's message list in place without
// triggering a persist. Used when a store loads a session's rows, or when a
// temporary session's history has just been reconstructed.
func (s *Session) HydrateMessages(messages []ChatMessage) {
	s.messages = append([]ChatMessage(nil), messages...)
	sortMessages(s.messages)
}

func (s *Session) OwnerID() int64 { return s.ownerID }
func (s *Session) Name() string   { return s.name }

func (s *Session) Model() string        { return s.model }
func (s *Session) SystemPrompt() string { return s.systemPrompt }

// Messages returns a copy of the session's ordered message list.
func (s *Session) Messages() []ChatMessage {
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// IsPersistent reports whether this session has a backing store.
func (s *Session) IsPersistent() bool { return s.store != nil }

// SetModel changes the session's model and persists the metadata.
func (s *Session) SetModel(model string) error {
	s.model = model
	return s.persistInfo()
}

// SetSystemPrompt replaces the system prompt. Any prior synthetic system
// message is dropped; if the new prompt is non-empty a fresh one is
// inserted at position 0. Calling this twice with the same prompt leaves
// the same observable state as calling it once.
func (s *Session) SetSystemPrompt(prompt string) error {
	s.dropSyntheticSystemMessage()
	s.systemPrompt = prompt
	if prompt != "" {
		s.messages = append([]ChatMessage{NewSystemMessage(s.ownerID, s.name, prompt)}, s.messages...)
	}
	if err := s.persistInfo(); err != nil {
		return err
	}
	return s.persistMessages()
}

// AddMessage appends msg, keeps the list sorted by timestamp, and persists
// the session row and the message list.
func (s *Session) AddMessage(msg ChatMessage) error {
	msg.OwnerID = s.ownerID
	msg.SessionName = s.name
	s.messages = append(s.messages, msg)
	sortMessages(s.messages)
	if err := s.persistInfo(); err != nil {
		return err
	}
	return s.persistMessages()
}

func (s *Session) dropSyntheticSystemMessage() {
	filtered := s.messages[:0:0]
	for _, m := range s.messages {
		if m.IsSyntheticSystemMessage() {
			continue
		}
		filtered = append(filtered, m)
	}
	s.messages = filtered
}

func (s *Session) persistInfo() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveSessionInfo(s.ownerID, s.name, s.model, s.systemPrompt); err != nil {
		return fmt.Errorf("persist session info: %w", err)
	}
	return nil
}

func (s *Session) persistMessages() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SyncMessages(s.ownerID, s.name, s.messages); err != nil {
		return fmt.Errorf("persist session messages: %w", err)
	}
	return nil
}

func sortMessages(messages []ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// TemporarySessionName returns the deterministic name used for an ad-hoc
// session reconstructed from a channel's history.
func TemporarySessionName(channelID string) string {
	return fmt.Sprintf("Temp-%s", channelID)
}

// HistoryEvent is one chat-platform message pulled from channel history,
// already trimmed by the caller to exclude the message that triggered the
// respond path.
type HistoryEvent struct {
	MessageID      int64
	SenderID       int64
	SenderNickname string
	Timestamp      time.Time
	Content        string
	Mentions       []Mention
}

// BuildTemporarySession is the one-shot builder for the "temporary session"
// path: it never registers the result in any store. history must
// already be in chronological order with the triggering message removed.
// Messages from botUserID are tagged RoleAssistant; everything else is
// RoleUser. Mentions are rewritten at this capture point, not at render
// time.
func BuildTemporarySession(ownerID int64, channelID string, defaultModel, defaultSystemPrompt string, botUserID int64, history []HistoryEvent) *Session {
	name := TemporarySessionName(channelID)
	messages := make([]ChatMessage, 0, len(history)+1)
	if defaultSystemPrompt != "" {
		messages = append(messages, NewSystemMessage(ownerID, name, defaultSystemPrompt))
	}
	for _, h := range history {
		role := RoleUser
		if h.SenderID == botUserID {
			role = RoleAssistant
		}
		messages = append(messages, ChatMessage{
			ID:             h.MessageID,
			OwnerID:        ownerID,
			SenderID:       h.SenderID,
			SenderNickname: h.SenderNickname,
			SessionName:    name,
			Timestamp:      h.Timestamp,
			Role:           role,
			Content:        RewriteMentions(h.Content, h.Mentions),
		})
	}
	session := NewInMemorySession(ownerID, name, defaultModel, defaultSystemPrompt)
	session.HydrateMessages(messages)
	return session
}
