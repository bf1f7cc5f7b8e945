package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/steelforge/llmbridge/bridgeerr"
	"github.com/steelforge/llmbridge/model"
)

// CommandRequest is one raw chat-platform message, not yet known to be a
// command. Dispatch returns ok=false when Raw doesn't start with the
// configured prefix, so the caller can silently ignore ordinary chatter.
type CommandRequest struct {
	ChannelID      string
	MessageID      int64
	OwnerID        int64
	SenderID       int64
	SenderNickname string
	Mentions       []model.Mention
	Raw            string
}

// Dispatch parses req.Raw against the configured command prefix and routes
// to the matching operation. $llm drives the full
// streaming Respond path and posts its own reply; every other command
// returns a single text reply the caller is expected to post once.
//
// ok is false when Raw isn't a recognized command; the caller should ignore
// the message rather than treat it as an error.
func (b *Bridge) Dispatch(ctx context.Context, req CommandRequest) (reply string, ok bool, err error) {
	prefix := b.Config.BotPrefix
	if prefix == "" || !strings.HasPrefix(req.Raw, prefix) {
		return "", false, nil
	}
	rest := strings.TrimPrefix(req.Raw, prefix)
	name, args := splitCommand(rest)

	switch name {
	case "llm":
		if args == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "prompt"}
		}
		err := b.Respond(ctx, RespondRequest{
			ChannelID:      req.ChannelID,
			MessageID:      req.MessageID,
			OwnerID:        req.OwnerID,
			SenderID:       req.SenderID,
			SenderNickname: req.SenderNickname,
			Prompt:         args,
			Mentions:       req.Mentions,
		})
		return "", true, err

	case "llm-new-session":
		if args == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "name"}
		}
		if err := b.NewSession(req.OwnerID, args); err != nil {
			return "", true, err
		}
		return fmt.Sprintf("Session %q created and set active.", args), true, nil

	case "llm-list-sessions":
		names, err := b.ListSessions(req.OwnerID)
		if err != nil {
			return "", true, err
		}
		if len(names) == 0 {
			return "No sessions yet.", true, nil
		}
		return "Sessions:\n- " + strings.Join(names, "\n- "), true, nil

	case "llm-change-session":
		if args == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "name"}
		}
		if err := b.ChangeSession(req.OwnerID, args); err != nil {
			return "", true, err
		}
		return fmt.Sprintf("Session %q is now active.", args), true, nil

	case "llm-remove-session":
		if args == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "name"}
		}
		if err := b.RemoveSession(req.OwnerID, args); err != nil {
			return "", true, err
		}
		return fmt.Sprintf("Session %q removed.", args), true, nil

	case "llm-get-session-size":
		if args == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "name"}
		}
		size, err := b.GetSessionSize(req.OwnerID, args)
		if err != nil {
			return "", true, err
		}
		kind := "estimated"
		if size.UsedTokenizer {
			kind = "token"
		}
		return fmt.Sprintf("Session %q: %d messages, %d %s length", args, size.MessageCount, size.EstimatedSize, kind), true, nil

	case "llm-set-system-prompt":
		if args == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "text"}
		}
		if err := b.SetSystemPrompt(req.OwnerID, args); err != nil {
			return "", true, err
		}
		return "System prompt updated.", true, nil

	case "llm-list-models":
		return b.ListModels(), true, nil

	case "llm-set-session-model":
		sessionName, modelName := splitCommand(args)
		if sessionName == "" || modelName == "" {
			return "", true, &bridgeerr.ArgumentMissingError{Command: name, Arg: "name and model"}
		}
		if err := b.SetSessionModel(req.OwnerID, sessionName, modelName); err != nil {
			return "", true, err
		}
		return fmt.Sprintf("Session %q now uses model %q.", sessionName, modelName), true, nil

	default:
		return "", false, nil
	}
}

// splitCommand splits s on its first run of whitespace into (head, rest).
func splitCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t\n")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}
