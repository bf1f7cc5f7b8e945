package streaming

import (
	"context"
	"time"

	"github.com/steelforge/llmbridge/backend"
	"github.com/steelforge/llmbridge/catalog"
)

// MaxMessageLength is the chat platform's hard edit-length limit.
const MaxMessageLength = 2000

const truncationMarker = "… [truncated]"

// ReplyEditor is the placeholder-message side of the streaming pipeline: it
// is given the rendered text for each rate-limited edit.
type ReplyEditor interface {
	Edit(ctx context.Context, text string) error
}

// Result is what a completed (or cancelled) pipeline run produced.
type Result struct {
	Thoughts string
	Content  string
}

// Run drives chunks through a ThinkingParser configured from cfg (nil cfg
// or a config with no thinking tags disables thinking-segment extraction)
// and issues rate-limited edits through editor, no more often than once per
// editDelay, plus exactly one final edit once the stream ends and any text
// was produced. On cancellation or a backend error chunk, Run stops
// without emitting another edit, leaving the placeholder's last rendered
// content visible.
func Run(ctx context.Context, chunks <-chan backend.Chunk, editor ReplyEditor, editDelay time.Duration, cfg *catalog.ModelConfig) (Result, error) {
	parser := newParserForConfig(cfg)
	lastEdit := time.Now()
	produced := false

loop:
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				break loop
			}
			if chunk.Err != nil {
				return resultOf(parser), chunk.Err
			}
			if chunk.Text != "" {
				parser.Append(chunk.Text)
				produced = true
			}
			if time.Since(lastEdit) >= editDelay {
				if err := editor.Edit(ctx, RenderTruncated(parser)); err != nil {
					return resultOf(parser), err
				}
				lastEdit = time.Now()
			}
			if chunk.Done {
				break loop
			}
		case <-ctx.Done():
			return resultOf(parser), ctx.Err()
		}
	}

	if produced {
		if err := editor.Edit(ctx, RenderTruncated(parser)); err != nil {
			return resultOf(parser), err
		}
	}
	return resultOf(parser), nil
}

func newParserForConfig(cfg *catalog.ModelConfig) *ThinkingParser {
	if cfg == nil || !cfg.HasThinkingTags() {
		return NewThinkingParser("", "")
	}
	return NewThinkingParser(cfg.ThinkingPrefix, cfg.ThinkingSuffix)
}

func resultOf(p *ThinkingParser) Result {
	return Result{Thoughts: p.Thoughts(), Content: p.Content()}
}

// RenderTruncated renders p's current state and, if it exceeds
// MaxMessageLength, truncates the content (never the thoughts) with an
// elision marker so the edit still fits the platform's message-length
// limit. Thoughts are never shortened, so a render whose thoughts alone
// exceed the limit still exceeds it.
func RenderTruncated(p *ThinkingParser) string {
	return truncateRendered(p.Thoughts(), p.Content())
}

func truncateRendered(thoughts, content string) string {
	rendered := renderParts(thoughts, content)
	if len([]rune(rendered)) <= MaxMessageLength || content == "" {
		return rendered
	}

	prefix := ""
	if thoughts != "" && content != "" {
		prefix = "*" + thoughts + "*\n\n"
	}

	budget := MaxMessageLength - len([]rune(prefix)) - len([]rune(truncationMarker))
	if budget < 0 {
		budget = 0
	}
	truncatedContent := truncateRunes(content, budget)
	return prefix + truncatedContent + truncationMarker
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
